package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the JSON logger. Output goes to a rotated file when
// LOG_FILE is set and is mirrored to stdout outside production.
func NewLogger(cfg *Config) *logrus.Logger {
	logger := logrus.New()

	var writers []io.Writer
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10,   // Megabytes before log is rotated
				MaxBackups: 3,    // Number of old logs to keep
				MaxAge:     28,   // Maximum number of days to retain old log files
				Compress:   true, // Compress backups
			})
		}
	}
	if !cfg.IsProduction() || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	logger.SetOutput(io.MultiWriter(writers...))

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Logger telah diinisialisasi dengan sukses!")
	return logger
}
