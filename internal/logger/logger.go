package logger

import (
	"github.com/sirupsen/logrus"
)

// Log - общий логгер процесса. До вызова Init пишет в stderr с уровнем info.
var Log = logrus.New()

// Init настраивает уровень и формат логов под окружение.
// Log не пересоздаётся: записи Component, полученные до Init, продолжают работать.
func Init(env string) {
	level := logrus.InfoLevel
	if env == "development" {
		level = logrus.DebugLevel
	}
	Log.SetLevel(level)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Component возвращает запись с полем component для логов подсистемы.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
