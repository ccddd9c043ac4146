// Package logger builds the process logger: a console encoder on stderr,
// tee'd with a JSON encoder on a rotating file when one is configured.
package logger

import (
	"io"
	"os"

	"github.com/fieldline/routecache/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger at level writing to stderr and, if cfg.File is set,
// to a lumberjack-rotated file. The returned closer flushes and closes the
// file.
func New(level config.LogLevel, cfg config.Log) (*zap.Logger, io.Closer) {
	return build(level.Zap(), cfg, zapcore.Lock(os.Stderr))
}

func build(level zap.AtomicLevel, cfg config.Log, console zapcore.WriteSyncer) (*zap.Logger, io.Closer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, level),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
		closer = file
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return log, closerFunc(func() error {
		_ = log.Sync()
		return closer.Close()
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
