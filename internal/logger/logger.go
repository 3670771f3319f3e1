// Package logger provides the process-wide structured logger. It wraps
// zap.SugaredLogger behind a small Logger type so call sites keep the
// familiar Debug/Info/Warn/Error(msg, key, val, ...) shape regardless of
// which structured-logging library sits underneath.
package logger

import (
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variable name for log level configuration.
const envLogLevel = "STREAMX_LOG_LEVEL"

var (
	atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	global      *Logger
	initOnce    sync.Once

	flagLevel = flag.String("log.level", "", "log level (debug, info, warn, error)")
)

// Logger is a thin facade over *zap.SugaredLogger preserving the
// msg-then-alternating-key-value calling convention used throughout this
// codebase.
type Logger struct {
	s *zap.SugaredLogger
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.s.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.s.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.s.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.s.Errorw(msg, args...) }

// With returns a derived Logger carrying the given alternating key-value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{s: l.s.With(args...)}
}

// Init initializes the global logger. Safe to call multiple times; only the
// first call constructs the underlying zap core.
func Init() {
	initOnce.Do(func() {
		atomicLevel.SetLevel(detectLevel())
		global = &Logger{s: zap.New(newCore(os.Stdout)).Sugar()}
	})
}

func newCore(w io.Writer) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), atomicLevel)
}

// UseWriter swaps the output writer (intended for tests). Retains current level.
func UseWriter(w io.Writer) {
	Init()
	global = &Logger{s: zap.New(newCore(w)).Sugar()}
}

// New builds a standalone Logger writing to w at the given level, independent
// of the process-wide global logger. Intended for tests that want to assert
// on log output without mutating shared state.
func New(w io.Writer, level string) *Logger {
	lvl, ok := parseLevel(level)
	if !ok {
		lvl = zap.InfoLevel
	}
	al := zap.NewAtomicLevelAt(lvl)
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), al)
	return &Logger{s: zap.New(core).Sugar()}
}

// detectLevel resolves the initial log level from (precedence high→low):
//  1. command-line flag -log.level
//  2. environment variable STREAMX_LOG_LEVEL
//  3. default (info)
func detectLevel() zapcore.Level {
	if *flagLevel == "" {
		for _, arg := range os.Args[1:] {
			if strings.HasPrefix(arg, "-log.level=") {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) == 2 {
					*flagLevel = parts[1]
				}
			}
		}
	}
	if lvl, ok := parseLevel(strings.TrimSpace(*flagLevel)); ok {
		return lvl
	}
	if env := os.Getenv(envLogLevel); env != "" {
		if lvl, ok := parseLevel(env); ok {
			return lvl
		}
	}
	return zap.InfoLevel
}

func parseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel, true
	case "info", "":
		return zap.InfoLevel, true
	case "warn", "warning":
		return zap.WarnLevel, true
	case "error", "err":
		return zap.ErrorLevel, true
	}
	return 0, false
}

// SetLevel changes the runtime log level.
func SetLevel(level string) error {
	Init()
	lvl, ok := parseLevel(level)
	if !ok {
		return errors.New("invalid log level: " + level)
	}
	atomicLevel.SetLevel(lvl)
	return nil
}

// Level returns the current runtime level as string.
func Level() string {
	Init()
	return atomicLevel.Level().String()
}

// Logger returns the global logger (ensures Init was called).
func Logger() *Logger { Init(); return global }

// Convenience top-level logging functions.
func Debug(msg string, args ...interface{}) { Logger().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Logger().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Logger().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Logger().Error(msg, args...) }

// WithConn attaches connection identity fields.
func WithConn(l *Logger, connID, peerAddr string) *Logger {
	return l.With("conn_id", connID, "peer_addr", peerAddr)
}

// WithStream attaches the stream key.
func WithStream(l *Logger, streamKey string) *Logger {
	return l.With("stream_key", streamKey)
}

// WithMessageMeta attaches message metadata fields. ts is an RTMP timestamp
// in milliseconds if provided (>0); if ts==0 the current time is used.
func WithMessageMeta(l *Logger, msgType string, csid int, msid uint32, ts uint32) *Logger {
	if ts == 0 {
		ms := uint32(time.Now().UnixMilli() & 0xFFFFFFFF)
		return l.With("msg_type", msgType, "csid", csid, "msid", msid, "timestamp", ms)
	}
	return l.With("msg_type", msgType, "csid", csid, "msid", msid, "timestamp", ts)
}
