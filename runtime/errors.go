package runtime

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fatal reports a runtime-level failure the way idris_rts.c's various
// `fprintf(stderr, ...); exit(...)` call sites do (out-of-memory, stack
// overflow, inbox full, type-dispatch failure — spec §7), but through
// structured logging instead of a bare stderr line. These failures are
// never recoverable by compiled code: they indicate either an invariant
// violation or resource exhaustion, per spec §7's propagation policy.
func fatal(log *zap.Logger, msg string, fields ...zap.Field) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Error(msg, fields...)
	_ = log.Sync()
	os.Exit(1)
}

// NewLogger builds the process-wide zap logger used for GC tracing and
// fatal diagnostics. Production config (JSON, info level) matches the
// style seen across the retrieval pack's zap users; callers that want
// GC tracing raise the level to Debug.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}
