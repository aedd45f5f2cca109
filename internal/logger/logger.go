// Package logger wraps logrus with the dashboard's formatting conventions.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"card-market-lab/internal/config"
)

// Fields is an alias for logrus.Fields.
type Fields = logrus.Fields

// Log wraps logrus.Logger.
type Log struct {
	*logrus.Logger
}

// New builds a logger from cfg. Output goes to stdout, and additionally to a
// size-rotated file when cfg.File is set.
func New(cfg config.LoggingConfig) (*Log, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	l.SetOutput(out)

	return &Log{Logger: l}, nil
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Log {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Log{Logger: l}
}

// WithComponent tags entries with the emitting component.
func (l *Log) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}
