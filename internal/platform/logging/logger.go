// Package logging wraps zap behind key/value call sites so packages log as
// logger.Info("msg", "key", value) and the *Context variants add trace ids.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

type Logger struct {
	z *zap.Logger
	// synced is shared by every logger derived from the same root.
	synced *atomic.Bool
}

var fallback atomic.Pointer[Logger]

func init() {
	fallback.Store(NewNop())
}

// NewJSON logs one JSON object per line to stdout.
func NewJSON(level Level) *Logger {
	return NewJSONTo(os.Stdout, level)
}

// NewConsole logs colored, human-readable lines to stdout.
func NewConsole(level Level) *Logger {
	return NewConsoleTo(os.Stdout, level)
}

func NewJSONTo(out io.Writer, level Level) *Logger {
	return newLogger(out, zapcore.NewJSONEncoder(baseEncoding()), level)
}

func NewConsoleTo(out io.Writer, level Level) *Logger {
	enc := baseEncoding()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return newLogger(out, zapcore.NewConsoleEncoder(enc), level)
}

func newLogger(out io.Writer, enc zapcore.Encoder, level Level) *Logger {
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(level))
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(LevelError)))
}

func NewNop() *Logger {
	return FromZap(nil)
}

// FromZap adopts z as-is. A nil z yields a logger that discards everything.
func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z, synced: new(atomic.Bool)}
}

// Default is the process logger installed by SetDefault, or a no-op one.
func Default() *Logger {
	return fallback.Load()
}

func SetDefault(logger *Logger) {
	if logger == nil {
		logger = NewNop()
	}
	fallback.Store(logger)
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(raw string) (Level, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(raw))
	if err != nil || level < LevelDebug || level > LevelError {
		return LevelInfo, fmt.Errorf("unsupported log level %q", raw)
	}
	return level, nil
}

func baseEncoding() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	return enc
}

func (l *Logger) core() *Logger {
	if l == nil || l.z == nil {
		return Default()
	}
	return l
}

// Sync flushes buffered entries once per root logger.
func (l *Logger) Sync() error {
	if l == nil || l.z == nil || !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.z.Sync()
}

func (l *Logger) With(args ...any) *Logger {
	base := l.core()
	return &Logger{z: base.z.With(appendFields(nil, args)...), synced: base.synced}
}

// Named scopes the logger to a component, e.g. "ingestion".
func (l *Logger) Named(component string) *Logger {
	base := l.core()
	return &Logger{z: base.z.Named(component), synced: base.synced}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(context.Background(), LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(context.Background(), LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(context.Background(), LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(context.Background(), LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelError, msg, args)
}

func (l *Logger) emit(ctx context.Context, level Level, msg string, args []any) {
	ce := l.core().z.Check(level, msg)
	if ce == nil {
		return
	}
	fields := appendFields(make([]zap.Field, 0, len(args)/2+2), args)
	ce.Write(appendTraceFields(fields, ctx)...)
}
