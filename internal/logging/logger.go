// Package logging provides the shared application logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. It is usable before Init is called.
var Logger = logrus.New()

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// Init configures output, level and formatting. Unknown levels fall back to info.
func Init(appName, level string) {
	InitWithOutput(appName, level, os.Stdout)
}

// InitWithOutput is Init with an explicit writer.
func InitWithOutput(appName, level string, out io.Writer) {
	Logger.SetOutput(out)

	levelStr := strings.ToLower(strings.TrimSpace(level))
	if levelStr == "" {
		levelStr = "info"
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Logger.Warnf("Invalid log level %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	Logger.ReplaceHooks(make(logrus.LevelHooks))
	Logger.AddHook(&appNameHook{appName: appName})
}
