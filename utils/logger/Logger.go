// Package logger builds logrus loggers for running experiments
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config describes how a logger writes. Level is a logrus level name,
// Format is "text" or "json", and Output is "stdout", "stderr", or a
// file path which is appended to.
type Config struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	Output string `mapstructure:"output" json:"output"`
}

// Default returns a Config logging info level text to stderr
func Default() Config {
	return Config{Level: "info", Format: "text", Output: "stderr"}
}

// New returns a logger configured by cfg. Invalid levels, formats, and
// outputs fall back to info, text, and stderr, logging a warning. The
// returned closer closes the log file, if any.
func New(cfg Config) (*logrus.Logger, io.Closer) {
	log := logrus.New()
	var closer io.Closer = nopCloser{}

	// Set output
	switch cfg.Output {
	case "stdout":
		log.SetOutput(os.Stdout)
	case "stderr", "":
		log.SetOutput(os.Stderr)
	default:
		// Assume file path
		file, err := os.OpenFile(cfg.Output,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.SetOutput(os.Stderr)
			log.Warnf("Failed to open log file '%s', using stderr: %v",
				cfg.Output, err)
		} else {
			log.SetOutput(file)
			closer = file
		}
	}

	// Set log format
	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.Warnf("Invalid log format '%s', using 'text'", cfg.Format)
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		if cfg.Level != "" {
			log.Warnf("Invalid log level '%s', using 'info'", cfg.Level)
		}
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
