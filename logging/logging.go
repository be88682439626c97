// Package logging provides leveled key=value console output for the daemon.
// The task store is the durable record of what happened to every task; this
// package only provides real-time output for monitoring.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// Nop creates a Logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{
		output:   io.Discard,
		minLevel: LevelError,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs in stable order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Lifecycle-derived logging methods ---
// Called by the store facade and worker pool after state transitions.

// TaskEnqueued logs a task entering the queue.
func (l *Logger) TaskEnqueued(id int64, taskType string) {
	l.Info("task_enqueued", map[string]interface{}{
		"task": id,
		"type": taskType,
	})
}

// TaskClaimed logs a worker claiming a task. Stale-lease reclaims are
// logged separately by the store, which is the only layer that knows.
func (l *Logger) TaskClaimed(id int64, workerID string) {
	l.Debug("task_claimed", map[string]interface{}{
		"task":   id,
		"worker": workerID,
	})
}

// TaskCompleted logs a successful execution.
func (l *Logger) TaskCompleted(id int64, duration time.Duration) {
	l.Info("task_completed", map[string]interface{}{
		"task":     id,
		"duration": duration.String(),
	})
}

// TaskRetrying logs a failed execution that will be retried.
func (l *Logger) TaskRetrying(id int64, attempts int, err error) {
	l.Warn("task_retrying", map[string]interface{}{
		"task":     id,
		"attempts": attempts,
		"error":    err.Error(),
	})
}

// TaskDead logs a terminal failure.
func (l *Logger) TaskDead(id int64, attempts int, err error) {
	l.Error("task_dead", map[string]interface{}{
		"task":     id,
		"attempts": attempts,
		"error":    err.Error(),
	})
}

// TaskRedriven logs a manual redrive.
func (l *Logger) TaskRedriven(id int64) {
	l.Info("task_redriven", map[string]interface{}{
		"task": id,
	})
}

// WorkerStarted logs a worker unit entering its claim loop.
func (l *Logger) WorkerStarted(workerID string) {
	l.Debug("worker_started", map[string]interface{}{
		"worker": workerID,
	})
}

// WorkerStopped logs a worker unit leaving its claim loop.
func (l *Logger) WorkerStopped(workerID string, processed, failed int64) {
	l.Debug("worker_stopped", map[string]interface{}{
		"worker":    workerID,
		"processed": processed,
		"failed":    failed,
	})
}
