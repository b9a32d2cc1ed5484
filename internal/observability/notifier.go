package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Notifier forwards triggered alerts to the operator.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// webhookNotifier posts alert summaries to a Slack-compatible incoming
// webhook.
type webhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a Notifier that posts to webhookURL.
func NewWebhookNotifier(webhookURL string) Notifier {
	return &webhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookMessage struct {
	Text   string         `json:"text"`
	Blocks []webhookBlock `json:"blocks"`
}

type webhookBlock struct {
	Type string       `json:"type"`
	Text *webhookText `json:"text,omitempty"`
}

type webhookText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one message listing alerts, most severe first. It makes no
// request when alerts is empty.
func (n *webhookNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildWebhookMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling alert message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildWebhookMessage(alerts []Alert) webhookMessage {
	sorted := append([]Alert{}, alerts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityRank(sorted[i].Severity) < severityRank(sorted[j].Severity)
	})

	summary := fmt.Sprintf("mflow: %d notification alert(s)", len(sorted))
	blocks := []webhookBlock{{
		Type: "header",
		Text: &webhookText{Type: "plain_text", Text: summary},
	}}
	for _, alert := range sorted {
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityMarker(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Message,
			alert.TriggeredAt.Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, webhookBlock{
			Type: "section",
			Text: &webhookText{Type: "mrkdwn", Text: text},
		})
	}
	return webhookMessage{Text: summary, Blocks: blocks}
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

func severityMarker(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
