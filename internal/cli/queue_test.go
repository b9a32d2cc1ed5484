package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
)

func resetSendFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		sendChannel = "wechat"
		sendContentFile = ""
		sendDryRun = false
		previewChannel = "wechat"
		queuePending = false
		queueJSON = false
	})
}

func TestQueueCmd_ListsMostConflictsFirst(t *testing.T) {
	newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := queueCmd.RunE(queueCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[2], "c1") || !strings.Contains(lines[2], "预算评审、设计评审") {
		t.Errorf("first row = %q, want c1 with both meetings", lines[2])
	}
	if !strings.Contains(lines[3], "c2") || !strings.Contains(lines[3], "0/1") {
		t.Errorf("second row = %q", lines[3])
	}
}

func TestQueueCmd_JSON(t *testing.T) {
	newCLIFixture(t)
	resetSendFlags(t)
	queueJSON = true

	out := captureStdout(t, func() {
		if err := queueCmd.RunE(queueCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	var queue []models.WorkItem
	if err := json.Unmarshal([]byte(out), &queue); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(queue) != 2 || queue[0].Contact.ID != "c1" || len(queue[0].Tasks) != 2 {
		t.Errorf("queue = %+v", queue)
	}
}

func TestQueueCmd_EmptyAfterEveryoneNotified(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)
	tasks, _ := f.svc.Tasks()
	tasks = core.MarkSent(tasks, "c1", []string{"t1", "t2"})
	tasks = core.MarkSent(tasks, "c2", []string{"t1"})
	if err := f.svc.ReplaceTasks(tasks); err != nil {
		t.Fatal(err)
	}

	out := captureStdout(t, func() {
		if err := queueCmd.RunE(queueCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Queue is empty.") {
		t.Errorf("output = %q", out)
	}
}

func TestPreviewCmd_MultiMeetingNotice(t *testing.T) {
	newCLIFixture(t)
	resetSendFlags(t)

	out := captureStdout(t, func() {
		if err := previewCmd.RunE(previewCmd, []string{"张三"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	for _, want := range []string{"Template: multi-default", "张总您好", "2场会议", "预算评审", "设计评审", "张三-采购"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestPreviewCmd_SMSTarget(t *testing.T) {
	newCLIFixture(t)
	resetSendFlags(t)
	previewChannel = "sms"

	out := captureStdout(t, func() {
		if err := previewCmd.RunE(previewCmd, []string{"c2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "sms: 13800000002") || !strings.Contains(out, "sms-default") {
		t.Errorf("preview = %s", out)
	}
}

func TestSendCmd_MarksPersonSent(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)

	out := captureStdout(t, func() {
		if err := sendCmd.RunE(sendCmd, []string{"李四"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Sent wechat notice") {
		t.Errorf("output = %q", out)
	}
	if len(f.bridge.requests) != 1 {
		t.Fatalf("bridge received %d requests, want 1", len(f.bridge.requests))
	}
	req := f.bridge.requests[0]
	if req.Target != "李四-技术" || !strings.Contains(req.Content, "预算评审") {
		t.Errorf("request = %+v", req)
	}

	task := f.task(t, "t1")
	if p, _ := task.Participant("c2"); !p.IsSent {
		t.Error("c2 not marked sent on t1")
	}
	if p, _ := task.Participant("c1"); p.IsSent {
		t.Error("c1 marked sent without being notified")
	}
	if task.Status != models.TaskSending {
		t.Errorf("t1 status = %s, want sending", task.Status)
	}
}

func TestSendCmd_ContentFile(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)
	path := filepath.Join(t.TempDir(), "msg.txt")
	if err := os.WriteFile(path, []byte("张总您好，会议改到下午。\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sendContentFile = path
	sendChannel = "sms"

	captureStdout(t, func() {
		if err := sendCmd.RunE(sendCmd, []string{"c1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if len(f.bridge.requests) != 1 {
		t.Fatalf("bridge received %d requests", len(f.bridge.requests))
	}
	req := f.bridge.requests[0]
	if req.Content != "张总您好，会议改到下午。" || req.Target != "13800000001" {
		t.Errorf("request = %+v", req)
	}
	for _, id := range []string{"t1", "t2"} {
		if p, _ := f.task(t, id).Participant("c1"); !p.IsSent {
			t.Errorf("c1 not marked sent on %s", id)
		}
	}
	if f.task(t, "t2").Status != models.TaskCompleted {
		t.Errorf("t2 should be completed once its only participant is sent")
	}
}

func TestSendCmd_DryRunUsesOutbox(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)
	sendDryRun = true

	out := captureStdout(t, func() {
		if err := sendCmd.RunE(sendCmd, []string{"c2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Wrote to outbox") {
		t.Errorf("output = %q", out)
	}
	if len(f.bridge.requests) != 0 || len(f.outbox.requests) != 1 {
		t.Errorf("bridge=%d outbox=%d, want 0 and 1", len(f.bridge.requests), len(f.outbox.requests))
	}
	if p, _ := f.task(t, "t1").Participant("c2"); p.IsSent {
		t.Error("dry run marked c2 sent")
	}
}

func TestSendCmd_FailureLeavesQueued(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)
	f.bridge.err = &core.DispatchError{Reason: "bridge unreachable"}

	var err error
	captureStdout(t, func() { err = sendCmd.RunE(sendCmd, []string{"c2"}) })
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bridge unreachable") || !strings.Contains(err.Error(), "still queued") {
		t.Errorf("err = %v", err)
	}
	if p, _ := f.task(t, "t1").Participant("c2"); p.IsSent {
		t.Error("failed send must not mark the person sent")
	}
}

func TestSendCmd_EmptyContentFile(t *testing.T) {
	newCLIFixture(t)
	resetSendFlags(t)
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sendContentFile = path

	err := sendCmd.RunE(sendCmd, []string{"c2"})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Errorf("err = %v, want empty content error", err)
	}
}

func TestSkipCmd_LeavesStateUnchanged(t *testing.T) {
	f := newCLIFixture(t)
	resetSendFlags(t)

	out := captureStdout(t, func() {
		if err := skipCmd.RunE(skipCmd, []string{"c1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Skipped c1") {
		t.Errorf("output = %q", out)
	}
	if p, _ := f.task(t, "t1").Participant("c1"); p.IsSent {
		t.Error("skip must not mark sent")
	}
	if len(f.bridge.requests) != 0 {
		t.Error("skip must not dispatch")
	}
}

func TestSkipCmd_UnknownContact(t *testing.T) {
	newCLIFixture(t)
	if err := skipCmd.RunE(skipCmd, []string{"赵六"}); err == nil {
		t.Fatal("expected error for unknown contact")
	}
}
