package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends timestamped lines to an audit trail file. Writes are
// fire-and-forget: the first failure is reported through onError and the
// pipeline carries on.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	now     func() time.Time
	onError func(error)
}

// Open creates or opens the audit file at path in append mode.
func Open(path string, onError func(error)) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %q: %w", path, err)
	}
	return &Logger{file: f, now: time.Now, onError: onError}, nil
}

// Event appends one line: ISO-8601 timestamp, a dash, the message.
func (l *Logger) Event(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s - %s\n", l.now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	if _, err := l.file.WriteString(line); err != nil && l.onError != nil {
		l.onError(err)
	}
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
