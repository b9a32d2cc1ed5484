package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/mflow/internal/integration"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/pkg/models"
)

type metricsMock struct {
	calculateFn func(since time.Time) (*observability.Metrics, error)
}

func (m *metricsMock) Calculate(since time.Time) (*observability.Metrics, error) {
	return m.calculateFn(since)
}

func withMetrics(t *testing.T, calc observability.MetricsCalculator) {
	t.Helper()
	orig := MetricsCalc
	t.Cleanup(func() {
		MetricsCalc = orig
		statsJSON = false
		statsSince = "7d"
	})
	MetricsCalc = calc
}

func TestStatsCmd_Text(t *testing.T) {
	newCLIFixture(t)
	var gotSince time.Time
	withMetrics(t, &metricsMock{calculateFn: func(since time.Time) (*observability.Metrics, error) {
		gotSince = since
		return &observability.Metrics{
			Sent: 3, Failed: 1, Skipped: 2,
			SentByChannel:  map[string]int{"wechat": 2, "sms": 1},
			FailureReasons: map[string]int{"timeout": 1},
		}, nil
	}})
	statsSince = "30d"

	out := captureStdout(t, func() {
		if err := statsCmd.RunE(statsCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	for _, want := range []string{"Meetings", "0/3", "Conflict cases:", "75.0%", "timeout:", "wechat:"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
	if d := time.Since(gotSince); d < 29*24*time.Hour || d > 31*24*time.Hour {
		t.Errorf("since = %v, want about 30 days ago", gotSince)
	}
}

func TestStatsCmd_JSON(t *testing.T) {
	newCLIFixture(t)
	withMetrics(t, &metricsMock{calculateFn: func(time.Time) (*observability.Metrics, error) {
		return &observability.Metrics{Sent: 1}, nil
	}})
	statsJSON = true

	out := captureStdout(t, func() {
		if err := statsCmd.RunE(statsCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	var report statsReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Summary.Meetings != 2 || report.Summary.Participants != 3 || report.Metrics.Sent != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestStatsCmd_NoEventLog(t *testing.T) {
	newCLIFixture(t)
	withMetrics(t, nil)

	out := captureStdout(t, func() {
		if err := statsCmd.RunE(statsCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "delivery metrics unavailable") {
		t.Errorf("output = %q", out)
	}
}

func TestStatsCmd_Errors(t *testing.T) {
	newCLIFixture(t)
	withMetrics(t, &metricsMock{calculateFn: func(time.Time) (*observability.Metrics, error) {
		return nil, fmt.Errorf("disk error")
	}})

	if err := statsCmd.RunE(statsCmd, nil); err == nil || !strings.Contains(err.Error(), "calculating metrics") {
		t.Errorf("err = %v", err)
	}

	statsSince = "fortnight"
	if err := statsCmd.RunE(statsCmd, nil); err == nil || !strings.Contains(err.Error(), "--since") {
		t.Errorf("err = %v", err)
	}
}

func TestOutboxCmd(t *testing.T) {
	f := newCLIFixture(t)
	t.Cleanup(func() { outboxFull = false })

	out := captureStdout(t, func() {
		if err := outboxCmd.RunE(outboxCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Outbox is empty.") {
		t.Errorf("output = %q", out)
	}

	box, err := integration.NewOutboxBridge(f.base)
	if err != nil {
		t.Fatal(err)
	}
	err = box.Deliver(context.Background(), integration.Delivery{
		Channel: models.ChannelSMS,
		Target:  "13800000002",
		Content: "李工您好！\n会议改期。",
	})
	if err != nil {
		t.Fatal(err)
	}

	outboxFull = true
	out = captureStdout(t, func() {
		if err := outboxCmd.RunE(outboxCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	for _, want := range []string{"sms", "13800000002", "    李工您好！", "    会议改期。"} {
		if !strings.Contains(out, want) {
			t.Errorf("outbox output missing %q:\n%s", want, out)
		}
	}
}

func TestOutboxCmd_NoBasePath(t *testing.T) {
	orig := BasePath
	defer func() { BasePath = orig }()
	BasePath = ""

	if err := outboxCmd.RunE(outboxCmd, nil); err == nil {
		t.Fatal("expected error without base path")
	}
}
