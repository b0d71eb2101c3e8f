// Package logging builds the zap logger used by every botpanel component.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/botpanel/internal/config"
)

// Logger is a zap logger plus the resources behind it.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
	file  io.Closer
}

// New builds a logger from cfg: a console encoder on stderr, and a JSON
// encoder to a rotated file when cfg.File is set.
func New(cfg config.LogConfig) (*Logger, error) {
	return newLogger(cfg, zapcore.Lock(os.Stderr))
}

func newLogger(cfg config.LogConfig, console zapcore.WriteSyncer) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, level),
	}

	l := &Logger{Level: level}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		l.file = rotator
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}

// Close flushes the logger and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), Level: zap.NewAtomicLevel()}
}
