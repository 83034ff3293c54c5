package utils

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// Logger returns the process-wide structured logger. Level defaults to
// info and can be overridden with LOG_LEVEL.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})

		level, err := logrus.ParseLevel(GetEnv("LOG_LEVEL", "info"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
	})
	return logger
}
