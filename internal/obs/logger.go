// Package obs provides the logging and metrics instrumentation shared by
// every controller in the autopilot core.
package obs

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger.
var Logger *logrus.Logger

func init() {
	Logger = NewLogger("info")
}

// NewLogger builds a JSON-formatted logrus logger at the given level
// ("debug", "info", "warn", "error"), writing to stdout.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}
