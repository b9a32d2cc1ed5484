package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/mflow/pkg/models"
)

func TestNewOutboxBridge(t *testing.T) {
	t.Run("creates outbox directory", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := NewOutboxBridge(dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(filepath.Join(dir, OutboxDirName))
		if err != nil || !info.IsDir() {
			t.Fatalf("outbox directory missing: %v", err)
		}
	})

	t.Run("rejects empty base dir", func(t *testing.T) {
		if _, err := NewOutboxBridge(""); err == nil {
			t.Fatal("expected error for empty base dir")
		}
	})
}

func TestOutboxBridge_DeliverAndRead(t *testing.T) {
	dir := t.TempDir()
	bridge, err := NewOutboxBridge(dir)
	if err != nil {
		t.Fatal(err)
	}

	content := "李工您好，\n明天上午09:00开会。\n---\n请回复。"
	if err := bridge.Deliver(context.Background(), Delivery{
		Channel: models.ChannelWechat,
		Target:  "工程-李工",
		Content: content,
		Files:   []string{"议程.pdf"},
	}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	msgs, err := ReadOutbox(dir)
	if err != nil {
		t.Fatalf("ReadOutbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.To != "工程-李工" || msg.Channel != models.ChannelWechat || msg.Status != "queued" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Content != content {
		t.Errorf("Content = %q, want %q", msg.Content, content)
	}
	if len(msg.Files) != 1 || msg.Files[0] != "议程.pdf" {
		t.Errorf("Files = %v", msg.Files)
	}
}

func TestReadOutbox_SkipsMalformedAndMissing(t *testing.T) {
	dir := t.TempDir()
	msgs, err := ReadOutbox(dir)
	if err != nil || msgs != nil {
		t.Fatalf("missing outbox: %v, %v", msgs, err)
	}

	if err := os.MkdirAll(filepath.Join(dir, OutboxDirName), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, OutboxDirName, "bad.md"), []byte("no frontmatter"), 0o600); err != nil {
		t.Fatal(err)
	}
	msgs, err = ReadOutbox(dir)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("got %v, %v", msgs, err)
	}
}
