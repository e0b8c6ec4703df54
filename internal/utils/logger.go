package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// serviceHook stamps every entry with the service that emitted it.
type serviceHook struct {
	service string
	runID   string
}

func (h *serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	if h.runID != "" {
		entry.Data["run_id"] = h.runID
	}
	return nil
}

// InitLogger configures Logger from LOG_LEVEL, LOG_FORMAT and ENV. Text
// output is the default; deployed environments log JSON.
func InitLogger(appName string) {
	configureLogger(Logger, appName, os.Getenv("LOG_LEVEL"), logFormat(os.Getenv("LOG_FORMAT"), os.Getenv("ENV")))
	Logger.AddHook(&serviceHook{service: appName, runID: os.Getenv("UNIQUE_RUN_NUMBER")})
}

func logFormat(format, env string) string {
	if f := strings.ToLower(format); f == "json" || f == "text" {
		return f
	}
	switch strings.ToLower(env) {
	case "prod", "production", "staging":
		return "json"
	default:
		return "text"
	}
}

func configureLogger(l *logrus.Logger, appName, levelStr, format string) {
	l.SetOutput(os.Stdout)

	levelStr = strings.ToLower(levelStr)
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		l.Warnf("Invalid LOG_LEVEL '%s' for %s, defaulting to INFO", levelStr, appName)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
