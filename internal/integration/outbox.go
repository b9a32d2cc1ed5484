package integration

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/valter-silva-au/mflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// OutboxDirName is the dry-run outbox inside the base directory.
const OutboxDirName = "outbox"

// outboxBridge implements Deliverer by writing each message as a markdown
// file with YAML frontmatter, for rehearsing a send without the bridge.
type outboxBridge struct {
	dir string
	now func() time.Time
}

// NewOutboxBridge creates a Deliverer that writes to baseDir/outbox/.
func NewOutboxBridge(baseDir string) (Deliverer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("creating outbox: base dir is empty")
	}
	dir := filepath.Join(baseDir, OutboxDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating outbox directory %s: %w", dir, err)
	}
	return &outboxBridge{dir: dir, now: time.Now}, nil
}

// OutboxMessage is one message written by the outbox bridge.
type OutboxMessage struct {
	ID      string         `yaml:"id" json:"id"`
	Channel models.Channel `yaml:"channel" json:"channel"`
	To      string         `yaml:"to" json:"to"`
	Date    string         `yaml:"date" json:"date"`
	Files   []string       `yaml:"files,omitempty" json:"files,omitempty"`
	Status  string         `yaml:"status" json:"status"`
	Content string         `yaml:"-" json:"content"`
}

func (o *outboxBridge) Deliver(ctx context.Context, d Delivery) error {
	if err := ctx.Err(); err != nil {
		return &BridgeError{Reason: "writing outbox message", Err: err}
	}
	at := o.now().UTC()
	msg := OutboxMessage{
		ID:      ulid.MustNew(ulid.Timestamp(at), rand.Reader).String(),
		Channel: d.Channel,
		To:      d.Target,
		Date:    at.Format(time.RFC3339),
		Files:   d.Files,
		Status:  "queued",
		Content: d.Content,
	}

	content, err := renderOutboxFile(msg)
	if err != nil {
		return &BridgeError{Reason: "rendering outbox message", Err: err}
	}
	path := filepath.Join(o.dir, msg.ID+".md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return &BridgeError{Reason: "writing outbox message", Err: err}
	}
	return nil
}

// ReadOutbox lists the messages in baseDir/outbox/, oldest first. Malformed
// files are skipped.
func ReadOutbox(baseDir string) ([]OutboxMessage, error) {
	dir := filepath.Join(baseDir, OutboxDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading outbox directory: %w", err)
	}

	var msgs []OutboxMessage
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		msg, err := parseOutboxFile(string(data))
		if err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

func renderOutboxFile(msg OutboxMessage) (string, error) {
	fmBytes, err := yaml.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fmBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(msg.Content)
	return sb.String(), nil
}

// parseOutboxFile splits a markdown file into its YAML frontmatter and body.
func parseOutboxFile(content string) (OutboxMessage, error) {
	var msg OutboxMessage

	if !strings.HasPrefix(content, "---\n") {
		return msg, fmt.Errorf("no frontmatter delimiter found")
	}
	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return msg, fmt.Errorf("no closing frontmatter delimiter found")
	}

	if err := yaml.Unmarshal([]byte(rest[:idx]), &msg); err != nil {
		return msg, fmt.Errorf("unmarshaling frontmatter: %w", err)
	}
	msg.Content = strings.TrimPrefix(rest[idx+5:], "\n")
	return msg, nil
}
