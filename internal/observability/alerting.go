package observability

import (
	"fmt"
	"sort"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	// ConsecutiveFailures is how many failed dispatches in a row, with no
	// success in between, flag a contact.
	ConsecutiveFailures int
	// FailureRatePercent flags the bridge when at least this share of
	// attempts in the window failed.
	FailureRatePercent int
	// MinAttempts is the number of attempts needed before the failure rate
	// is judged.
	MinAttempts int
	// Window bounds the events considered. Zero means the whole log.
	Window time.Duration
}

// DefaultAlertThresholds returns the thresholds used when settings leave them
// unset.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ConsecutiveFailures: 3,
		FailureRatePercent:  50,
		MinAttempts:         5,
		Window:              24 * time.Hour,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Evaluate reads the events in the window and checks every condition.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now().UTC()
	filter := EventFilter{}
	if ae.thresholds.Window > 0 {
		since := now.Add(-ae.thresholds.Window)
		filter.Since = &since
	}
	events, err := ae.eventLog.Read(filter)
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkFailingContacts(events, now)...)
	alerts = append(alerts, ae.checkFailureRate(events, now)...)
	alerts = append(alerts, ae.checkMissingTemplates(events, now)...)
	return alerts, nil
}

// checkFailingContacts flags contacts whose latest dispatches all failed.
func (ae *alertEngine) checkFailingContacts(events []Event, now time.Time) []Alert {
	if ae.thresholds.ConsecutiveFailures <= 0 {
		return nil
	}
	streak := make(map[string]int)
	lastReason := make(map[string]string)
	for _, event := range events {
		id := event.ContactID()
		if id == "" || event.DryRun() {
			continue
		}
		switch event.Type {
		case "notification.sent":
			streak[id] = 0
		case "notification.failed":
			streak[id]++
			lastReason[id], _ = event.Data["reason"].(string)
		}
	}

	var ids []string
	for id, n := range streak {
		if n >= ae.thresholds.ConsecutiveFailures {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	alerts := make([]Alert, 0, len(ids))
	for _, id := range ids {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("failing-%s", id),
			Condition:   "contact_failing",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("contact %s failed %d times in a row (last: %s)", id, streak[id], lastReason[id]),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkFailureRate flags a bridge that fails a large share of attempts.
func (ae *alertEngine) checkFailureRate(events []Event, now time.Time) []Alert {
	if ae.thresholds.FailureRatePercent <= 0 {
		return nil
	}
	sent, failed := 0, 0
	for _, event := range events {
		if event.DryRun() {
			continue
		}
		switch event.Type {
		case "notification.sent":
			sent++
		case "notification.failed":
			failed++
		}
	}
	attempts := sent + failed
	if attempts == 0 || attempts < ae.thresholds.MinAttempts {
		return nil
	}
	rate := failed * 100 / attempts
	if rate < ae.thresholds.FailureRatePercent {
		return nil
	}
	return []Alert{{
		ID:          "failure-rate",
		Condition:   "failure_rate_high",
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("%d of %d dispatch attempts failed (%d%%)", failed, attempts, rate),
		TriggeredAt: now,
	}}
}

// checkMissingTemplates flags contacts previewed without a usable template
// who have not been sent anything since.
func (ae *alertEngine) checkMissingTemplates(events []Event, now time.Time) []Alert {
	missing := make(map[string]bool)
	for _, event := range events {
		id := event.ContactID()
		switch event.Type {
		case "template.missing":
			missing[id] = true
		case "notification.sent":
			delete(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []Alert{{
		ID:          "template-missing",
		Condition:   "template_missing",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d contact(s) have no matching notification template", len(missing)),
		TriggeredAt: now,
	}}
}
