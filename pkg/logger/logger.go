// Package logger holds the process-wide zap logger. Init runs once at process
// start; components receive the logger by reference (L or an explicit
// *zap.Logger option) instead of building their own.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	Level   string    // debug, info, warn, error
	Format  string    // console or json
	Console io.Writer // defaults to stderr
	Quiet   bool      // no console output

	// Rotating file output, disabled when LogFile is empty
	LogFile    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu       sync.Mutex
	once     sync.Once
	global   *zap.Logger
	rotating *lumberjack.Logger
)

// Init builds the global logger. Only the first call has an effect; later
// calls return the existing logger with a nil error.
func Init(opts Options) (*zap.Logger, error) {
	var initErr error
	once.Do(func() {
		l, rot, err := build(opts)
		if err != nil {
			initErr = err
			return
		}
		mu.Lock()
		global, rotating = l, rot
		mu.Unlock()
	})
	if initErr != nil {
		// let a corrected retry through
		once = sync.Once{}
		return nil, initErr
	}
	return L(), nil
}

// L returns the global logger, or a no-op logger before Init.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Named returns a child of the global logger.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Close flushes buffered entries and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		// stderr reports EINVAL on sync on most platforms
		_ = global.Sync()
	}
	if rotating != nil {
		rotating.Close()
		rotating = nil
	}
}

// Reset clears the global logger (for testing).
func Reset() {
	Close()
	mu.Lock()
	defer mu.Unlock()
	global = nil
	once = sync.Once{}
}

func build(opts Options) (*zap.Logger, *lumberjack.Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cores []zapcore.Core
	if !opts.Quiet {
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(encoder(opts.Format), zapcore.Lock(zapcore.AddSync(w)), level))
	}

	var rot *lumberjack.Logger
	if opts.LogFile != "" {
		rot = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(encoder("json"), zapcore.AddSync(rot), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil, nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.DPanicLevel)).Named("driverkit"), rot, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}
