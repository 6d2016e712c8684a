// Package logger wraps charmbracelet/log with a process-wide instance
// configured from the environment.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is a thin wrapper around charmbracelet/log.Logger.
type Logger struct {
	*log.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// Get returns the singleton logger instance, creating it on first use.
func Get() *Logger {
	once.Do(func() {
		instance = &Logger{
			Logger: log.NewWithOptions(os.Stderr, log.Options{
				Level:           log.WarnLevel,
				ReportTimestamp: false,
			}),
		}
		instance.configureFromEnv()
	})
	return instance
}

// SetLogLevel sets the level from a string, defaulting to warn for
// unknown values. Diagnostics stay quiet unless asked for: this is an
// interactive tool and stderr belongs to the attached shell.
func (l *Logger) SetLogLevel(level string) {
	var logLevel log.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = log.DebugLevel
	case "info":
		logLevel = log.InfoLevel
	case "warn", "warning":
		logLevel = log.WarnLevel
	case "error":
		logLevel = log.ErrorLevel
	default:
		logLevel = log.WarnLevel
	}
	l.SetLevel(logLevel)
}

func (l *Logger) configureFromEnv() {
	if level := os.Getenv("DEV_LOG_LEVEL"); level != "" {
		l.SetLogLevel(level)
	}
}

// Debug logs a debug message on the shared logger.
func Debug(msg string, keyvals ...interface{}) {
	Get().Debug(msg, keyvals...)
}

// Info logs an info message on the shared logger.
func Info(msg string, keyvals ...interface{}) {
	Get().Info(msg, keyvals...)
}

// Warn logs a warning on the shared logger.
func Warn(msg string, keyvals ...interface{}) {
	Get().Warn(msg, keyvals...)
}

// Error logs an error on the shared logger.
func Error(msg string, keyvals ...interface{}) {
	Get().Error(msg, keyvals...)
}
