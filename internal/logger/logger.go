package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how log lines are written.
type Options struct {
	Level  string
	Format string
	// File, when set, receives JSON log lines in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup initializes the global zerolog logger based on environment configuration.
//   - Level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - Format: "json" for production, "pretty" for human-readable dev output
//   - File: optional rotating log file managed by lumberjack
//
// Returns the configured logger instance.
func Setup(opts Options) zerolog.Logger {
	var writer io.Writer

	if opts.Format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	} else {
		writer = os.Stdout
	}

	if opts.File != "" {
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	log := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return log
}

// FromConfig builds the logger from the application configuration.
func FromConfig(cfg *config.Config) zerolog.Logger {
	return Setup(Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
}
