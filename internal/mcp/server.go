// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the notification queue as MCP tools for AI assistants.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/pkg/models"
)

// Server wraps mflow services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	svc         core.NotificationService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over the notification service.
// metricsCalc and alertEngine may be nil if observability is disabled.
func NewServer(svc core.NotificationService, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		svc:         svc,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "mflow", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listQueueInput struct {
	PendingOnly bool `json:"pending_only,omitempty" jsonschema:"only list people who still have someone unnotified"`
}

type queueEntryOutput struct {
	ContactID string   `json:"contact_id"`
	Name      string   `json:"name"`
	Dept      string   `json:"dept,omitempty"`
	Meetings  int      `json:"meetings"`
	TaskIDs   []string `json:"task_ids"`
	AllSent   bool     `json:"all_sent"`
}

type listQueueOutput struct {
	Queue []queueEntryOutput `json:"queue"`
	Count int                `json:"count"`
}

type previewInput struct {
	ContactID string `json:"contact_id" jsonschema:"required,the contact to preview"`
	Channel   string `json:"channel,omitempty" jsonschema:"delivery channel (wechat or sms). Defaults to wechat."`
}

type previewOutput struct {
	ContactID  string   `json:"contact_id"`
	Channel    string   `json:"channel"`
	TemplateID string   `json:"template_id,omitempty"`
	Target     string   `json:"target"`
	Content    string   `json:"content"`
	Files      []string `json:"files,omitempty"`
	Missing    bool     `json:"missing"`
}

type dispatchInput struct {
	ContactID string `json:"contact_id" jsonschema:"required,the contact to notify"`
	Channel   string `json:"channel,omitempty" jsonschema:"delivery channel (wechat or sms). Defaults to wechat."`
	Content   string `json:"content,omitempty" jsonschema:"edited message text; the rendered text is used when empty"`
	DryRun    bool   `json:"dry_run,omitempty" jsonschema:"write the message to the local outbox instead of the bridge"`
}

type outcomeOutput struct {
	ID        string   `json:"id"`
	ContactID string   `json:"contact_id"`
	Channel   string   `json:"channel"`
	Status    string   `json:"status"`
	Message   string   `json:"message,omitempty"`
	TaskIDs   []string `json:"task_ids"`
	At        string   `json:"at"`
}

type skipInput struct {
	ContactID string `json:"contact_id" jsonschema:"required,the contact to skip"`
	Channel   string `json:"channel,omitempty" jsonschema:"the channel that was being used"`
}

type validateTemplateInput struct {
	Type    string `json:"type" jsonschema:"required,template type (wechat, sms or multi)"`
	Content string `json:"content" jsonschema:"required,template text with {{token}} placeholders"`
}

type validateTemplateOutput struct {
	Valid    bool     `json:"valid"`
	Tokens   []string `json:"tokens"`
	Problems []string `json:"problems,omitempty"`
}

type getSummaryInput struct{}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	Sent            int            `json:"sent"`
	Failed          int            `json:"failed"`
	Skipped         int            `json:"skipped"`
	DryRuns         int            `json:"dry_runs"`
	TemplateMissing int            `json:"template_missing"`
	SuccessRate     float64        `json:"success_rate"`
	SentByChannel   map[string]int `json:"sent_by_channel"`
	FailureReasons  map[string]int `json:"failure_reasons"`
	ContactsReached int            `json:"contacts_reached"`
	EventCount      int            `json:"event_count"`
	OldestEvent     string         `json:"oldest_event,omitempty"`
	NewestEvent     string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_queue",
		Description: "List the notification work queue: one entry per person with open meetings, people in the most meetings first.",
	}, s.handleListQueue)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "preview_notification",
		Description: "Render the notification for one person without sending it. Reports when no template applies.",
	}, s.handlePreview)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "dispatch_notification",
		Description: "Send the notification for one person through the delivery bridge and mark them notified on every meeting it covers.",
	}, s.handleDispatch)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "skip_notification",
		Description: "Move past one person without sending. Their notified state is left unchanged.",
	}, s.handleSkip)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "validate_template",
		Description: "Check a template for unknown {{token}} placeholders and tokens that are not filled for its type.",
	}, s.handleValidateTemplate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_summary",
		Description: "Get meeting and participant totals: meetings by status, notified and replied slots, queued people and conflict cases.",
	}, s.handleGetSummary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get delivery metrics from the event log: sent, failed and skipped counts, failure reasons and channels.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (contacts failing repeatedly, high failure rate, missing templates).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListQueue(_ context.Context, _ *gomcp.CallToolRequest, input listQueueInput) (*gomcp.CallToolResult, listQueueOutput, error) {
	queue, err := s.svc.Queue(input.PendingOnly)
	if err != nil {
		return errorResult(fmt.Sprintf("building queue: %s", err)), listQueueOutput{}, nil
	}

	out := listQueueOutput{
		Queue: make([]queueEntryOutput, len(queue)),
		Count: len(queue),
	}
	for i, item := range queue {
		out.Queue[i] = queueEntryOutput{
			ContactID: item.Contact.ID,
			Name:      item.Contact.Name,
			Dept:      item.Contact.Dept,
			Meetings:  item.ConflictCount(),
			TaskIDs:   item.TaskIDs(),
			AllSent:   item.AllSent(),
		}
	}
	return nil, out, nil
}

func (s *Server) handlePreview(_ context.Context, _ *gomcp.CallToolRequest, input previewInput) (*gomcp.CallToolResult, previewOutput, error) {
	if input.ContactID == "" {
		return errorResult("contact_id is required"), previewOutput{}, nil
	}
	channel, err := parseChannel(input.Channel)
	if err != nil {
		return errorResult(err.Error()), previewOutput{}, nil
	}

	p, err := s.svc.Preview(input.ContactID, channel)
	if err != nil {
		return errorResult(fmt.Sprintf("previewing %s: %s", input.ContactID, err)), previewOutput{}, nil
	}

	return nil, previewOutput{
		ContactID:  p.Item.Contact.ID,
		Channel:    string(p.Channel),
		TemplateID: p.Template.ID,
		Target:     p.Target,
		Content:    p.Content,
		Files:      p.Files,
		Missing:    p.Missing,
	}, nil
}

func (s *Server) handleDispatch(ctx context.Context, _ *gomcp.CallToolRequest, input dispatchInput) (*gomcp.CallToolResult, outcomeOutput, error) {
	if input.ContactID == "" {
		return errorResult("contact_id is required"), outcomeOutput{}, nil
	}
	channel, err := parseChannel(input.Channel)
	if err != nil {
		return errorResult(err.Error()), outcomeOutput{}, nil
	}

	outcome, err := s.svc.Send(ctx, core.SendRequest{
		ContactID: input.ContactID,
		Channel:   channel,
		Content:   input.Content,
		DryRun:    input.DryRun,
	})
	if err != nil {
		var derr *core.DispatchError
		if errors.As(err, &derr) {
			return errorResult(fmt.Sprintf("dispatch to %s failed: %s", input.ContactID, derr.Reason)), outcomeToOutput(outcome), nil
		}
		return errorResult(fmt.Sprintf("dispatching %s: %s", input.ContactID, err)), outcomeOutput{}, nil
	}
	return nil, outcomeToOutput(outcome), nil
}

func (s *Server) handleSkip(_ context.Context, _ *gomcp.CallToolRequest, input skipInput) (*gomcp.CallToolResult, outcomeOutput, error) {
	if input.ContactID == "" {
		return errorResult("contact_id is required"), outcomeOutput{}, nil
	}
	channel, err := parseChannel(input.Channel)
	if err != nil {
		return errorResult(err.Error()), outcomeOutput{}, nil
	}

	outcome, err := s.svc.Skip(input.ContactID, channel)
	if err != nil {
		return errorResult(fmt.Sprintf("skipping %s: %s", input.ContactID, err)), outcomeOutput{}, nil
	}
	return nil, outcomeToOutput(outcome), nil
}

func (s *Server) handleValidateTemplate(_ context.Context, _ *gomcp.CallToolRequest, input validateTemplateInput) (*gomcp.CallToolResult, validateTemplateOutput, error) {
	tmpl := models.Template{Type: models.TemplateType(input.Type), Content: input.Content}
	if !tmpl.Type.Valid() {
		return errorResult(fmt.Sprintf("invalid template type %q: must be one of wechat, sms, multi", input.Type)), validateTemplateOutput{}, nil
	}

	problems := core.ValidateTemplate(tmpl)
	tokens := core.TemplateTokens(tmpl.Content)
	if tokens == nil {
		tokens = []string{}
	}
	return nil, validateTemplateOutput{
		Valid:    len(problems) == 0,
		Tokens:   tokens,
		Problems: problems,
	}, nil
}

func (s *Server) handleGetSummary(_ context.Context, _ *gomcp.CallToolRequest, _ getSummaryInput) (*gomcp.CallToolResult, core.Summary, error) {
	summary, err := s.svc.Summary()
	if err != nil {
		return errorResult(fmt.Sprintf("summarizing meetings: %s", err)), core.Summary{}, nil
	}
	return nil, summary, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := observability.ParseSince(sinceStr, time.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		Sent:            metrics.Sent,
		Failed:          metrics.Failed,
		Skipped:         metrics.Skipped,
		DryRuns:         metrics.DryRuns,
		TemplateMissing: metrics.TemplateMissing,
		SuccessRate:     metrics.SuccessRate(),
		SentByChannel:   metrics.SentByChannel,
		FailureReasons:  metrics.FailureReasons,
		ContactsReached: metrics.ContactsReached,
		EventCount:      metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func parseChannel(s string) (models.Channel, error) {
	if s == "" {
		return models.ChannelWechat, nil
	}
	c := models.Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid channel %q: must be wechat or sms", s)
	}
	return c, nil
}

func outcomeToOutput(o models.Outcome) outcomeOutput {
	out := outcomeOutput{
		ID:        o.ID,
		ContactID: o.ContactID,
		Channel:   string(o.Channel),
		Status:    string(o.Status),
		Message:   o.Message,
		TaskIDs:   o.TaskIDs,
	}
	if !o.At.IsZero() {
		out.At = o.At.Format(time.RFC3339)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		SentByChannel:  make(map[string]int),
		FailureReasons: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
