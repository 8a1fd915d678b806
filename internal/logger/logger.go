package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Переменные окружения, управляющие логированием.
const (
	EnvGinMode  = "GIN_MODE"
	EnvLogLevel = "LOG_LEVEL"
)

// New инициализирует логгер. Продакшн (GIN_MODE=release) пишет JSON уровня
// info, остальные окружения — текст уровня debug. LOG_LEVEL перекрывает
// уровень в любом окружении, нераспознанное значение игнорируется.
func New(output io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(output)
	l.SetFormatter(new(logrus.JSONFormatter))
	l.SetLevel(logrus.InfoLevel)

	if os.Getenv(EnvGinMode) != "release" {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(new(logrus.TextFormatter))
	}

	if levelStr := os.Getenv(EnvLogLevel); levelStr != "" {
		if level, parseErr := logrus.ParseLevel(levelStr); parseErr == nil {
			l.SetLevel(level)
		}
	}

	return l
}
