package nutripal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// AttemptLogger records every provider call made while extracting a meal.
type AttemptLogger interface {
	LogAttempt(attempt AttemptLog) error
}

// NewAttemptLogFilePath returns a file path based on a cleaned up model name so
// logs produced with different models are easy to tell apart.
func NewAttemptLogFilePath(model string) string {
	if model == "" {
		model = "default"
	}
	name := strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model))
	return fmt.Sprintf("./logs/%d.%s.json", time.Now().Unix(), name)
}

// AttemptLog represents a single model call within one extraction.
type AttemptLog struct {
	Attempt    int       `json:"attempt"`
	Timestamp  time.Time `json:"timestamp"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Credential int       `json:"credential_index"`
	DurationMS int64     `json:"duration_ms"`
	Output     string    `json:"output,omitempty"`
	Items      int       `json:"items"`
	Error      string    `json:"error,omitempty"`
}

// FileAttemptLogger accumulates attempts and writes them out on Flush.
type FileAttemptLogger struct {
	mu       sync.Mutex
	attempts []AttemptLog
	writer   io.Writer
}

func NewFileAttemptLogger(writer io.Writer) *FileAttemptLogger {
	return &FileAttemptLogger{
		attempts: make([]AttemptLog, 0),
		writer:   writer,
	}
}

// LogAttempt buffers the attempt; nothing is written until Flush.
func (l *FileAttemptLogger) LogAttempt(attempt AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Flush writes all buffered attempts to the writer and clears the buffer.
func (l *FileAttemptLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"extraction_session": map[string]any{
			"timestamp": time.Now(),
			"attempts":  l.attempts,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal attempt log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write attempt log: %w", err)
	}

	l.attempts = l.attempts[:0]
	return nil
}

// Attempts returns a copy of the buffered attempts.
func (l *FileAttemptLogger) Attempts() []AttemptLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AttemptLog(nil), l.attempts...)
}

// NoOpAttemptLogger discards all attempts.
type NoOpAttemptLogger struct{}

func NewNoOpAttemptLogger() *NoOpAttemptLogger {
	return &NoOpAttemptLogger{}
}

func (NoOpAttemptLogger) LogAttempt(AttemptLog) error {
	return nil
}

// StdoutAttemptLogger writes each attempt as a JSON line (for Lambda/CloudWatch).
type StdoutAttemptLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewStdoutAttemptLogger() *StdoutAttemptLogger {
	return &StdoutAttemptLogger{out: os.Stdout}
}

func (l *StdoutAttemptLogger) LogAttempt(attempt AttemptLog) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
