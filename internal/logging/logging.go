// Package logging configures the logrus logger shared by warren's services.
//
// Every log line is a JSON object carrying at least timestamp, level,
// component and instance, and usually an event_type naming what happened.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Options selects the level and output format.
type Options struct {
	Level  string // logrus level name, default "info"
	Format string // "json" (default) or "text"
}

// New builds a logger writing to out.
func New(opts Options, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch opts.Format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s (must be 'json' or 'text')", opts.Format)
	}

	return logger, nil
}

// Component returns an entry tagged with the component and instance names.
func Component(logger *logrus.Logger, component, instance string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": component,
		"instance":  instance,
	})
}
