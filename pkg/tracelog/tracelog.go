// Package tracelog provides an append-only JSONL record of workflow
// invocations for observability.
package tracelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"synergy/pkg/logx"
)

// InputTruncateLen bounds the stored input text, purely for log readability.
// Output text is stored unabridged.
const InputTruncateLen = 200

// Statuses recorded with each trace.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is one workflow invocation's observability entry.
type Record struct {
	Timestamp string `json:"timestamp"`
	Workflow  string `json:"workflow"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Status    string `json:"status"`
}

// Log writes trace records to a JSONL file. Appends are best-effort: a write
// failure is logged and swallowed, never surfaced to the workflow that
// produced the trace.
type Log struct {
	path   string
	mu     sync.Mutex
	logger *logx.Logger
}

// New creates a trace log writing to path. The parent directory is created
// lazily on first append so a read-only deployment can still serve Recent.
func New(path string) *Log {
	return &Log{
		path:   path,
		logger: logx.NewLogger("tracelog"),
	}
}

// Append records one workflow invocation. Fire-and-forget: errors are logged,
// not returned.
func (l *Log) Append(workflow, input, output, status string) {
	record := Record{
		Timestamp: time.Now().Format(time.RFC3339),
		Workflow:  workflow,
		Input:     truncate(input, InputTruncateLen),
		Output:    output,
		Status:    status,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write(&record); err != nil {
		l.logger.Warn("failed to append trace for %s: %v", workflow, err)
	}
}

func (l *Log) write(record *Record) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trace log: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize trace: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

// Recent returns at most n records in chronological order, newest last.
// A missing log file yields an empty slice, not an error. Unparseable lines
// are skipped.
func (l *Log) Recent(n int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			l.logger.Warn("skipping malformed trace line: %v", err)
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace log: %w", err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
