package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput captures log output during a test
func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := logger
	logger = newLogger(&buf)
	defer func() { logger = oldLogger }()

	f()
	return buf.String()
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelInfo}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setLogLevel(tt.level)
			assert.Equal(t, tt.expected, logLevel)
		})
	}
}

func TestDebug(t *testing.T) {
	setLogLevel("debug")
	output := captureOutput(func() {
		Debug("Test debug message: %s", "value")
	})
	assert.Contains(t, output, "level=debug")
	assert.Contains(t, output, "Test debug message: value")

	setLogLevel("info")
	output = captureOutput(func() {
		Debug("This should not appear")
	})
	assert.Empty(t, output)
}

func TestInfo(t *testing.T) {
	setLogLevel("info")
	output := captureOutput(func() {
		Info("Test info message: %s", "value")
	})
	assert.Contains(t, output, "level=info")
	assert.Contains(t, output, "Test info message: value")

	setLogLevel("error")
	output = captureOutput(func() {
		Info("This should not appear")
	})
	assert.Empty(t, output)
}

func TestWarn(t *testing.T) {
	setLogLevel("warn")
	output := captureOutput(func() {
		Warn("Test warn message: %s", "value")
	})
	assert.Contains(t, output, "level=warning")
	assert.Contains(t, output, "Test warn message: value")

	setLogLevel("error")
	output = captureOutput(func() {
		Warn("This should not appear")
	})
	assert.Empty(t, output)
}

func TestError(t *testing.T) {
	setLogLevel("error")
	output := captureOutput(func() {
		Error("Test error message: %s", "value")
	})
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "Test error message: value")
}

func TestErrorWithStack(t *testing.T) {
	setLogLevel("info")
	err := errors.New("test error")
	output := captureOutput(func() {
		ErrorWithStack(err)
	})
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "test error")
	// Just check that some stack trace data is included
	assert.Contains(t, output, "goroutine")

	assert.Empty(t, captureOutput(func() { ErrorWithStack(nil) }))
}

func TestWithFields(t *testing.T) {
	setLogLevel("info")
	output := captureOutput(func() {
		With(Fields{"table": "tasks", "uid": "u1"}).Info("insert accepted")
	})
	assert.Contains(t, output, "table=tasks")
	assert.Contains(t, output, "uid=u1")
	assert.Contains(t, output, "insert accepted")
}

func TestRequestResponseLog(t *testing.T) {
	setLogLevel("debug")
	output := captureOutput(func() {
		RequestLog("POST", "/query", "req-1", `{"table":"tasks"}`)
		ResponseLog(200, "req-1", "")
	})
	assert.Contains(t, output, "request_id=req-1")
	assert.Contains(t, output, "HTTP Request: POST /query")
	assert.Contains(t, output, "HTTP Response: Status 200")
	assert.NotContains(t, output, "Response Body")
}
