package observability

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: observability, Property 1: Dispatch Counts Match Events
// *For any* sequence of sent, failed and skipped events, the calculator
// reports exactly as many of each as were written, and sent + failed
// attempts split into a success rate between 0 and 100.
func TestProperty_DispatchCountsMatchEvents(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
		if err != nil {
			t.Fatalf("creating event log: %v", err)
		}
		defer log.Close()

		base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		types := []string{"notification.sent", "notification.failed", "notification.skipped"}
		want := map[string]int{}

		n := rapid.IntRange(0, 30).Draw(rt, "numEvents")
		for i := 0; i < n; i++ {
			eventType := rapid.SampledFrom(types).Draw(rt, fmt.Sprintf("type_%d", i))
			contact := fmt.Sprintf("c%d", rapid.IntRange(1, 5).Draw(rt, fmt.Sprintf("contact_%d", i)))
			want[eventType]++
			if err := log.Write(dispatchEvent(base.Add(time.Duration(i)*time.Minute), eventType, contact, "wechat")); err != nil {
				t.Fatalf("writing event: %v", err)
			}
		}

		m, err := NewMetricsCalculator(log).Calculate(base)
		if err != nil {
			t.Fatalf("Calculate: %v", err)
		}
		if m.Sent != want["notification.sent"] || m.Failed != want["notification.failed"] || m.Skipped != want["notification.skipped"] {
			rt.Fatalf("metrics %+v do not match written %v", m, want)
		}
		if rate := m.SuccessRate(); rate < 0 || rate > 100 {
			rt.Fatalf("SuccessRate = %v", rate)
		}
		if m.EventCount != n {
			rt.Fatalf("EventCount = %d, want %d", m.EventCount, n)
		}
	})
}
