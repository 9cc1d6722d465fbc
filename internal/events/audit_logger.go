// Package events keeps the append-only audit trail of queue mutations.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msageha/buildq/internal/logging"
	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
)

const (
	// Default maximum log file size (10MB)
	DefaultMaxLogSize = 10 * 1024 * 1024
	LogFileExtension  = ".jsonl"
	ArchiveDir        = "archive"
)

// LogEntry is one line of the audit log.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	EventID   string         `json:"event_id"`
	Queue     string         `json:"queue,omitempty"`
	UnitID    string         `json:"unit_id,omitempty"`
	Strategy  string         `json:"strategy,omitempty"`
	PID       int            `json:"pid"`
	Details   map[string]any `json:"details,omitempty"`
}

// AuditLogger appends JSONL entries and rotates the file into archive/ once
// it exceeds maxSize.
type AuditLogger struct {
	mu              sync.Mutex
	file            *os.File
	currentSize     int64
	maxSize         int64
	logPath         string
	rotationCounter int
	now             func() time.Time
}

func NewAuditLogger(logPath string, maxSize int64) (*AuditLogger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}

	logger := &AuditLogger{
		logPath: logPath,
		maxSize: maxSize,
		now:     time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := logger.openLogFile(); err != nil {
		return nil, err
	}

	return logger, nil
}

// openLogFile opens the log file and gets its current size
func (l *AuditLogger) openLogFile() error {
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	l.file = file
	l.currentSize = stat.Size()
	return nil
}

// Log writes an entry of eventType with free-form details.
func (l *AuditLogger) Log(eventType string, details map[string]any) error {
	entry := LogEntry{
		EventType: eventType,
		Details:   details,
	}
	return l.WriteEntry(&entry)
}

// WriteEntry fills in timestamp, event ID, and PID when missing and appends
// the entry as a single line.
func (l *AuditLogger) WriteEntry(entry *LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}
	if entry.PID == 0 {
		entry.PID = os.Getpid()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	data = append(data, '\n')

	if l.currentSize > 0 && l.currentSize+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log: %w", err)
		}
	}

	// one write per line keeps O_APPEND lines whole across processes
	n, err := l.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}

	l.currentSize += int64(n)
	return nil
}

func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close current log file: %w", err)
	}

	archiveDir := filepath.Join(filepath.Dir(l.logPath), ArchiveDir)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	timestamp := l.now().Format("20060102_150405")
	l.rotationCounter++
	baseName := strings.TrimSuffix(filepath.Base(l.logPath), LogFileExtension)
	archiveName := fmt.Sprintf("%s.%s.%d.%d%s", baseName, timestamp, os.Getpid(), l.rotationCounter, LogFileExtension)
	archivePath := filepath.Join(archiveDir, archiveName)

	if err := os.Rename(l.logPath, archivePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to archive log file: %w", err)
	}

	if err := l.openLogFile(); err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}
	return nil
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return err
		}
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *AuditLogger) GetCurrentSize() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentSize
}

// QueueRecorder writes queue mutations to an AuditLogger. Write failures are
// logged as warnings: the queue file, not the audit trail, is authoritative.
type QueueRecorder struct {
	Audit *AuditLogger
	Log   *logging.Logger
}

func (r QueueRecorder) Record(_ context.Context, ev queue.Event) {
	if r.Audit == nil {
		return
	}
	entry := EntryFor(ev)
	if err := r.Audit.WriteEntry(&entry); err != nil {
		r.Log.Warnf("audit %s: %v", ev.Type, err)
	}
}

// EntryFor converts a queue event into an audit entry.
func EntryFor(ev queue.Event) LogEntry {
	entry := LogEntry{
		EventType: string(ev.Type),
		Queue:     string(ev.Queue),
		Details:   map[string]any{"length": ev.Length},
	}
	if ev.Type == queue.EventEnqueued {
		entry.Details["end"] = ev.End.String()
	}
	if ev.Unit == nil {
		return entry
	}
	entry.UnitID = ev.Unit.UnitID()
	entry.Strategy = ev.Unit.UnitStrategy()
	switch u := ev.Unit.(type) {
	case model.Job:
		entry.Details["description"] = u.Description
	case model.Group:
		entry.Details["steps"] = u.Steps
	}
	return entry
}

// ReadEntries parses every line of an audit log. Malformed lines are skipped
// and counted.
func ReadEntries(logPath string) (entries []LogEntry, skipped int, err error) {
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, skipped, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, skipped, nil
}
