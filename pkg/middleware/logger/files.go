package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the [log] block of the manifest.
type Config struct {
	Dir        string `toml:"dir"`          // default "log"
	MaxSizeMB  int    `toml:"max_size_mb"`  // default 50
	MaxBackups int    `toml:"max_backups"`  // default 3
	MaxAgeDays int    `toml:"max_age_days"` // default 7
	Level      string `toml:"level"`        // debug|info|warn|error, default info
	Console    *bool  `toml:"console"`      // default true
}

func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = "log"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 7
	}
	return c
}

func (c Config) level() zapcore.Level {
	lvl := zap.InfoLevel
	if c.Level != "" {
		if l, err := zapcore.ParseLevel(c.Level); err == nil {
			lvl = l
		}
	}
	return lvl
}

// NewLog returns a JSON logger writing to <dir>/<name> (rotated) and stdout.
func NewLog(cfg Config, name string) *zap.Logger {
	cfg = cfg.withDefaults()
	_ = os.MkdirAll(cfg.Dir, 0o755)

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})

	lvl := cfg.level()
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, lvl)}
	if cfg.Console == nil || *cfg.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), lvl))
	}
	return zap.New(zapcore.NewTee(cores...))
}
