package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelDebug for detailed troubleshooting
	LevelDebug Level = iota
	// LevelInfo for general operational entries
	LevelInfo
	// LevelWarn for non-critical issues
	LevelWarn
	// LevelError for errors that should be addressed
	LevelError
)

var (
	// Default logger
	logger   = newLogger(os.Stdout)
	logLevel = LevelInfo
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	l.SetLevel(logrus.DebugLevel)
	return l
}

// Initialize sets up the logger with the specified level
func Initialize(level string) {
	logger = newLogger(os.Stdout)
	setLogLevel(level)
}


// setLogLevel sets the log level from a string
func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
}

func (l Level) toLogrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// logMessage logs a message with the given level
func logMessage(entry *logrus.Entry, level Level, format string, v ...interface{}) {
	if level < logLevel {
		return
	}
	entry.Log(level.toLogrus(), fmt.Sprintf(format, v...))
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	logMessage(logrus.NewEntry(logger), LevelDebug, format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	logMessage(logrus.NewEntry(logger), LevelInfo, format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	logMessage(logrus.NewEntry(logger), LevelWarn, format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	logMessage(logrus.NewEntry(logger), LevelError, format, v...)
}

// ErrorWithStack logs an error with a stack trace
func ErrorWithStack(err error) {
	if err == nil {
		return
	}
	logMessage(logrus.NewEntry(logger), LevelError, "%v\n%s", err, debug.Stack())
}

// Fields attaches structured context to a message
type Fields map[string]interface{}

// With returns a logger that adds fields to every message
func With(fields Fields) *Entry {
	return &Entry{entry: logger.WithFields(logrus.Fields(fields))}
}

// Entry is a logger carrying fields
type Entry struct {
	entry *logrus.Entry
}

func (e *Entry) Debug(format string, v ...interface{}) { logMessage(e.entry, LevelDebug, format, v...) }
func (e *Entry) Info(format string, v ...interface{})  { logMessage(e.entry, LevelInfo, format, v...) }
func (e *Entry) Warn(format string, v ...interface{})  { logMessage(e.entry, LevelWarn, format, v...) }
func (e *Entry) Error(format string, v ...interface{}) { logMessage(e.entry, LevelError, format, v...) }

// RequestLog logs details of an HTTP request
func RequestLog(method, url, requestID, body string) {
	entry := With(Fields{"request_id": requestID})
	entry.Debug("HTTP Request: %s %s", method, url)
	if body != "" {
		entry.Debug("Request Body: %s", body)
	}
}

// ResponseLog logs details of an HTTP response
func ResponseLog(statusCode int, requestID, body string) {
	entry := With(Fields{"request_id": requestID})
	entry.Debug("HTTP Response: Status %d", statusCode)
	if body != "" {
		entry.Debug("Response Body: %s", body)
	}
}
