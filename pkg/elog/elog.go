// Package elog provides leveled logging for the engine and its
// background workers.
package elog

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"
)

// Level represents log levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel = LevelInfo
	logger       = log.New(os.Stdout, "", 0)
)

// SetLevel changes the minimum level that gets emitted.
func SetLevel(l Level) {
	currentLevel = l
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(l *log.Logger) {
	logger = l
}

// Debug logs a debug message.
func Debug(message string, params map[string]any) {
	if currentLevel <= LevelDebug {
		logMessage("DEBUG", message, params)
	}
}

// Info logs an info message.
func Info(message string, params map[string]any) {
	if currentLevel <= LevelInfo {
		logMessage("INFO", message, params)
	}
}

// Warn logs a warning message.
func Warn(message string, params map[string]any) {
	if currentLevel <= LevelWarn {
		logMessage("WARN", message, params)
	}
}

// Error logs an error message.
func Error(message string, params map[string]any) {
	if currentLevel <= LevelError {
		logMessage("ERROR", message, params)
	}
}

// logMessage formats one line: timestamp, level, message, then sorted
// key=value params.
func logMessage(level, message string, params map[string]any) {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, message)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%v", k, params[k])
		}
	}

	logger.Println(line)
}
