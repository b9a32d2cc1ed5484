package observability

import (
	"testing"
	"time"
)

func TestMetrics_Calculate(t *testing.T) {
	log := newTestLog(t)
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	failed := dispatchEvent(base.Add(time.Minute), "notification.failed", "2", "sms")
	failed.Data["reason"] = "timeout"
	dry := dispatchEvent(base.Add(3*time.Minute), "notification.sent", "3", "wechat")
	dry.Data["dry_run"] = true

	writeEvents(t, log,
		dispatchEvent(base.Add(-time.Hour), "notification.sent", "9", "wechat"),
		dispatchEvent(base, "notification.sent", "1", "wechat"),
		failed,
		dispatchEvent(base.Add(2*time.Minute), "notification.sent", "2", "sms"),
		dry,
		dispatchEvent(base.Add(4*time.Minute), "notification.skipped", "4", "wechat"),
		dispatchEvent(base.Add(5*time.Minute), "template.missing", "5", "wechat"),
		dispatchEvent(base.Add(6*time.Minute), "notification.sent", "1", "sms"),
	)

	m, err := NewMetricsCalculator(log).Calculate(base)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if m.Sent != 3 || m.Failed != 1 || m.Skipped != 1 || m.DryRuns != 1 || m.TemplateMissing != 1 {
		t.Errorf("counts = %+v", m)
	}
	if m.SentByChannel["wechat"] != 1 || m.SentByChannel["sms"] != 2 {
		t.Errorf("SentByChannel = %v", m.SentByChannel)
	}
	if m.FailureReasons["timeout"] != 1 {
		t.Errorf("FailureReasons = %v", m.FailureReasons)
	}
	if m.ContactsReached != 2 {
		t.Errorf("ContactsReached = %d, want 2", m.ContactsReached)
	}
	if m.EventCount != 7 {
		t.Errorf("EventCount = %d, want 7", m.EventCount)
	}
	if m.OldestEvent == nil || !m.OldestEvent.Equal(base) {
		t.Errorf("OldestEvent = %v", m.OldestEvent)
	}
	if got := m.SuccessRate(); got != 75 {
		t.Errorf("SuccessRate = %v, want 75", got)
	}
}

func TestMetrics_Empty(t *testing.T) {
	m, err := NewMetricsCalculator(newTestLog(t)).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil || m.SuccessRate() != 0 {
		t.Errorf("metrics = %+v", m)
	}
}
