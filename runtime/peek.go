package runtime

import (
	"bufio"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptrFromUintptr and uintptrFromPtr convert between the raw address a
// PTR/MANAGEDPTR cell carries and an unsafe.Pointer usable for actual
// memory access. Kept as named conversions (rather than inline casts at
// every call site) since every peek/poke/memset/memmove call goes
// through them.
func ptrFromUintptr(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) } //nolint:govet
func uintptrFromPtr(p unsafe.Pointer) uintptr     { return uintptr(p) }

// AllocRaw reserves an anonymous, non-tracked memory region outside the
// moving heap via mmap, for use with MkPtr/peek/poke — the Go analogue
// of a bare `malloc` call feeding `MKPTR`/`MKMPTR` in idris_rts.c. The
// region is not owned by any context and is never scanned by the
// collector; nothing in this package unmaps it.
func AllocRaw(size int) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		setErrno(err)
		return 0, err
	}
	return uintptr(unsafe.Pointer(&b[0])), nil
}

// PeekByte reads a single byte at (ptr, offset); no bounds checking, as
// spec §4.E requires (`idris_peek`, idris_rts.c:441-443).
func PeekByte(ptr uintptr, offset int) byte {
	p := (*byte)(unsafe.Add(ptrFromUintptr(ptr), offset))
	return *p
}

// PokeByte writes a single byte at (ptr, offset) (`idris_poke`).
func PokeByte(ptr uintptr, offset int, data byte) {
	p := (*byte)(unsafe.Add(ptrFromUintptr(ptr), offset))
	*p = data
}

// PeekPtr/PokePtr read and write a pointer-width slot (`idris_peekPtr`/
// `idris_pokePtr`, idris_rts.c:450-458).
func PeekPtr(ptr uintptr, offset int) uintptr {
	p := (*uintptr)(unsafe.Add(ptrFromUintptr(ptr), offset))
	return *p
}

func PokePtr(ptr uintptr, offset int, data uintptr) {
	p := (*uintptr)(unsafe.Add(ptrFromUintptr(ptr), offset))
	*p = data
}

// PeekDouble/PokeDouble access a 64-bit float slot (`idris_peekDouble`/
// `idris_pokeDouble`).
func PeekDouble(ptr uintptr, offset int) float64 {
	p := (*float64)(unsafe.Add(ptrFromUintptr(ptr), offset))
	return *p
}

func PokeDouble(ptr uintptr, offset int, data float64) {
	p := (*float64)(unsafe.Add(ptrFromUintptr(ptr), offset))
	*p = data
}

// PeekSingle/PokeSingle access a 32-bit float slot, returned widened to
// float64 the way MKFLOAT always does (`idris_peekSingle`/
// `idris_pokeSingle`).
func PeekSingle(ptr uintptr, offset int) float64 {
	p := (*float32)(unsafe.Add(ptrFromUintptr(ptr), offset))
	return float64(*p)
}

func PokeSingle(ptr uintptr, offset int, data float64) {
	p := (*float32)(unsafe.Add(ptrFromUintptr(ptr), offset))
	*p = float32(data)
}

// Memset fills size bytes at ptr+offset with c (`idris_memset`).
func Memset(ptr uintptr, offset int, c byte, size int) {
	dst := unsafe.Slice((*byte)(unsafe.Add(ptrFromUintptr(ptr), offset)), size)
	for i := range dst {
		dst[i] = c
	}
}

// Memmove copies size bytes from src+srcOffset to dst+dstOffset,
// tolerating overlap the way the C library's memmove does
// (`idris_memmove`).
func Memmove(dst uintptr, src uintptr, dstOffset, srcOffset, size int) {
	from := unsafe.Slice((*byte)(unsafe.Add(ptrFromUintptr(src), srcOffset)), size)
	to := unsafe.Slice((*byte)(unsafe.Add(ptrFromUintptr(dst), dstOffset)), size)
	copy(to, from) // copy() is overlap-safe in both directions in Go
}

// Alloc allocates an untyped RAWDATA-backed region of size bytes on
// ctx's heap (`idris_alloc`, idris_rts.c:189-194). RAWDATA cells exist
// only as a GC-copy target (§3.1): nothing but Alloc/Realloc, the
// collector and the message deep copier ever touch one.
func Alloc(ctx *Context, size int) Value {
	c := ctx.heap.Allocate(uintptr(size), false)
	c.hdr.kind = KindRawData
	c.tail = make([]byte, size)
	return cellValue(c)
}

// Realloc always allocates a fresh RAWDATA-backed block and copies
// min(oldSize, size) bytes in, since the moving heap never resizes a
// cell in place (`idris_realloc`, idris_rts.c:196-200; see
// SPEC_FULL.md §5.1).
func Realloc(ctx *Context, old Value, oldSize, size int) Value {
	fresh := Alloc(ctx, size)
	n := oldSize
	if size < n {
		n = size
	}
	copy(fresh.Cell().tail, old.Cell().tail[:n])
	return fresh
}

// ReadLine reads one line from r; an empty or failed read yields the
// empty string, matching `idris_readStr`'s treatment of a negative
// getline result (idris_rts.c:582-595).
func ReadLine(r *bufio.Reader) string {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return line
}
