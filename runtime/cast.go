package runtime

import (
	"strconv"
	"strings"
	"syscall"
)

// CastIntStr converts a signed immediate integer to its decimal STRING
// representation (`idris_castIntStr`, idris_rts.c:483-490).
func CastIntStr(ctx *Context, i Value) Value {
	return MkString(ctx, strPtr(strconv.Itoa(i.Int())))
}

// CastBitsStr converts a BITS8/16/32/64 cell to its unsigned decimal
// STRING representation, fatal on any other cell kind
// (`idris_castBitsStr`, idris_rts.c:492-528).
func CastBitsStr(ctx *Context, i Value) Value {
	c := i.Cell()
	switch c.hdr.kind {
	case KindBits8:
		return MkString(ctx, strPtr(strconv.FormatUint(c.bits&0xFF, 10)))
	case KindBits16:
		return MkString(ctx, strPtr(strconv.FormatUint(c.bits&0xFFFF, 10)))
	case KindBits32:
		return MkString(ctx, strPtr(strconv.FormatUint(c.bits&0xFFFFFFFF, 10)))
	case KindBits64:
		return MkString(ctx, strPtr(strconv.FormatUint(c.bits, 10)))
	default:
		fatal(ctx.log, "castBitsStr: not an integer type")
		return 0
	}
}

// CastStrInt parses a base-10 integer prefix of s, tolerating only a
// "\n"/"\r" as the single character immediately after the parsed
// digits and ignoring whatever follows that. `idris_castStrInt`
// (idris_rts.c:530-537) checks only `*end` against '\0'/'\n'/'\r', not
// the entire remainder, so "42\r\n" parses as 42.
func CastStrInt(s Value) Value {
	str := s.GetStr()
	end := 0
	for end < len(str) && (str[end] == '-' || (str[end] >= '0' && str[end] <= '9')) {
		end++
	}
	if end < len(str) && str[end] != '\n' && str[end] != '\r' {
		return MkImmediate(0)
	}
	n, err := strconv.Atoi(str[:end])
	if err != nil {
		return MkImmediate(0)
	}
	return MkImmediate(n)
}

// CastFloatStr formats a FLOAT cell with `%.16g` semantics
// (`idris_castFloatStr`, idris_rts.c:539-545).
func CastFloatStr(ctx *Context, f Value) Value {
	s := strconv.FormatFloat(f.Cell().f, 'g', 16, 64)
	return MkString(ctx, strPtr(s))
}

// CastStrFloat parses s as a float, as strtod does, returning 0 rather
// than failing outright for unparseable input — strtod's own behaviour
// for `idris_castStrFloat` (idris_rts.c:547-549).
func CastStrFloat(ctx *Context, s Value) Value {
	trimmed := strings.TrimSpace(s.GetStr())
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		f = 0
	}
	return MkFloat(ctx, f)
}

// Errno returns the OS error number recorded by the most recent failing
// call that records one (currently only AllocRaw's mmap); the value is
// process-wide, not per goroutine (`idris_errno`).
func Errno() int {
	return int(currentErrno)
}

// Strerror renders an errno value as a human-readable string
// (`idris_showerror`).
func Strerror(errno int) string {
	return syscall.Errno(errno).Error()
}

// currentErrno is set by call sites (e.g. AllocRaw's mmap failure path)
// that want Errno()/Strerror() to reflect the most recent syscall
// failure, mirroring the global `errno` idris_rts.c reads directly.
var currentErrno syscall.Errno

func setErrno(err error) {
	if errno, ok := err.(syscall.Errno); ok {
		currentErrno = errno
	}
}
