package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Event levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event represents a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "notification.sent", "template.missing"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// ContactID returns the contact the event is about, if any.
func (e Event) ContactID() string {
	id, _ := e.Data["contact_id"].(string)
	return id
}

// DryRun reports whether the event records an outbox rehearsal rather than
// a bridge delivery.
func (e Event) DryRun() bool {
	dry, _ := e.Data["dry_run"].(bool)
	return dry
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	Type      string
	Level     string
	ContactID string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{
		path: path,
		file: f,
	}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the log line by line and returns the events matching filter, in
// the order they were written. Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	return events, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	if filter.ContactID != "" && event.ContactID() != filter.ContactID {
		return false
	}
	return true
}

// LevelFor returns the level an event type is logged at: failures and
// missing templates are warnings, everything else is informational.
func LevelFor(eventType string) string {
	switch {
	case strings.HasSuffix(eventType, ".failed"), strings.HasSuffix(eventType, ".missing"):
		return LevelWarn
	case strings.HasSuffix(eventType, ".error"):
		return LevelError
	}
	return LevelInfo
}

// Describe builds the human-readable message stored with an event.
func Describe(eventType string, data map[string]any) string {
	contact, _ := data["contact_id"].(string)
	channel, _ := data["channel"].(string)
	switch eventType {
	case "notification.sent":
		return fmt.Sprintf("notified %s via %s", contact, channel)
	case "notification.failed":
		reason, _ := data["reason"].(string)
		return fmt.Sprintf("notifying %s via %s failed: %s", contact, channel, reason)
	case "notification.skipped":
		return fmt.Sprintf("skipped %s", contact)
	case "template.missing":
		return fmt.Sprintf("no %s template for %s", channel, contact)
	case "data.imported":
		source, _ := data["source"].(string)
		return fmt.Sprintf("imported %v contacts and %v meetings from %s", data["contacts"], data["tasks"], source)
	}
	return eventType
}
