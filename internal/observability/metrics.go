package observability

import (
	"fmt"
	"time"
)

// Metrics holds delivery metrics derived from the event log.
type Metrics struct {
	Sent            int            `json:"sent"`
	Failed          int            `json:"failed"`
	Skipped         int            `json:"skipped"`
	DryRuns         int            `json:"dry_runs"`
	TemplateMissing int            `json:"template_missing"`
	SentByChannel   map[string]int `json:"sent_by_channel"`
	FailureReasons  map[string]int `json:"failure_reasons"`
	ContactsReached int            `json:"contacts_reached"`
	EventCount      int            `json:"event_count"`
	OldestEvent     *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time     `json:"newest_event,omitempty"`
}

// SuccessRate is the share of dispatch attempts that were confirmed, in
// percent. It is zero when nothing was attempted.
func (m *Metrics) SuccessRate() float64 {
	attempts := m.Sent + m.Failed
	if attempts == 0 {
		return 0
	}
	return float64(m.Sent) * 100 / float64(attempts)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		SentByChannel:  make(map[string]int),
		FailureReasons: make(map[string]int),
	}
	m.EventCount = len(events)
	reached := make(map[string]bool)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "notification.sent":
			if event.DryRun() {
				m.DryRuns++
				continue
			}
			m.Sent++
			if channel, ok := event.Data["channel"].(string); ok {
				m.SentByChannel[channel]++
			}
			if id := event.ContactID(); id != "" {
				reached[id] = true
			}
		case "notification.failed":
			m.Failed++
			reason, _ := event.Data["reason"].(string)
			if reason == "" {
				reason = "unknown"
			}
			m.FailureReasons[reason]++
		case "notification.skipped":
			m.Skipped++
		case "template.missing":
			m.TemplateMissing++
		}
	}
	m.ContactsReached = len(reached)

	return m, nil
}
