package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger.
var Log *logrus.Logger

// Init builds the global logger from LOG_LEVEL and LOG_FORMAT.
// Call it once from main (or TestMain) before anything logs.
func Init() {
	Log = logrus.New()

	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	Configure(logLevel, os.Getenv("LOG_FORMAT"))

	Log.SetOutput(os.Stdout)
}

// Configure applies a level and format on top of the current logger.
// Empty values leave the existing setting alone.
func Configure(logLevel, logFormat string) {
	if Log == nil {
		Log = logrus.New()
		Log.SetOutput(os.Stdout)
	}

	if logLevel != "" {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		Log.SetLevel(level)
	}

	switch strings.ToLower(logFormat) {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{})
	case "":
		if _, isText := Log.Formatter.(*logrus.TextFormatter); !isText {
			return
		}
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}
}

// WithComponent is the usual entry point for package loggers.
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
