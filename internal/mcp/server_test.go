package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/internal/storage"
	"github.com/valter-silva-au/mflow/pkg/models"
)

// --- Fake implementations ---

type fakeBridge struct {
	requests []core.DeliveryRequest
	err      error
}

func (f *fakeBridge) Deliver(_ context.Context, req core.DeliveryRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
}

func (f *fakeMetricsCalculator) Calculate(_ time.Time) (*observability.Metrics, error) {
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, nil
}

// --- Test helpers ---

type fixture struct {
	svc    core.NotificationService
	tasks  storage.TaskStore
	bridge *fakeBridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()

	contacts := storage.NewContactStore(base)
	tasks := storage.NewTaskStore(base)
	if err := contacts.SaveContacts([]models.Contact{
		{ID: "c1", Name: "张三", Position: "总", Dept: "采购部", WechatRemark: "张三-采购", Phone: "13800000001"},
		{ID: "c2", Name: "李四", Position: "工", Dept: "技术办", WechatRemark: "李四-技术", Phone: "13800000002"},
	}); err != nil {
		t.Fatal(err)
	}
	participant := func(id string) models.ParticipantStatus {
		return models.ParticipantStatus{ContactID: id, Mode: models.ParticipantOffline, Files: models.DefaultFiles()}
	}
	if err := tasks.SaveTasks([]models.MeetingTask{
		{ID: "t1", Subject: "预算评审", Time: "2024-01-10T09:00", Location: "三楼会议室", Mode: models.MeetingOffline, Status: models.TaskDraft,
			Participants: []models.ParticipantStatus{participant("c1"), participant("c2")}},
		{ID: "t2", Subject: "设计评审", Time: "2024-01-10T14:00", Location: "三楼会议室", Mode: models.MeetingOffline, Status: models.TaskDraft,
			Participants: []models.ParticipantStatus{participant("c1")}},
	}); err != nil {
		t.Fatal(err)
	}

	bridge := &fakeBridge{}
	svc := core.NewNotificationService(core.ServiceConfig{
		Settings: core.NewSettingsManager(base),
		Contacts: contacts,
		Tasks:    tasks,
		Bridge:   func(*models.Settings) core.Bridge { return bridge },
		DryRun:   func(*models.Settings) core.Bridge { return bridge },
		Now:      func() time.Time { return time.Date(2024, 1, 9, 10, 30, 0, 0, time.UTC) },
	})
	return &fixture{svc: svc, tasks: tasks, bridge: bridge}
}

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	// Connect server (non-blocking).
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decodeResult reads the structured output of a successful tool call.
func decodeResult(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	if err := json.Unmarshal([]byte(extractText(result)), out); err == nil {
		return
	}
	if result.StructuredContent == nil {
		t.Fatalf("no structured content (text was: %s)", extractText(result))
	}
	data, _ := json.Marshal(result.StructuredContent)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshalling output: %v", err)
	}
}

func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestListQueue(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	var out listQueueOutput
	decodeResult(t, callTool(t, srv, "list_queue", map[string]any{}), &out)

	if out.Count != 2 {
		t.Fatalf("expected 2 queue entries, got %d", out.Count)
	}
	if out.Queue[0].ContactID != "c1" || out.Queue[0].Meetings != 2 {
		t.Errorf("first entry = %+v, want c1 with 2 meetings", out.Queue[0])
	}
}

func TestPreviewNotification(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	var out previewOutput
	decodeResult(t, callTool(t, srv, "preview_notification", map[string]any{"contact_id": "c2"}), &out)

	if out.TemplateID != "wechat-default" {
		t.Errorf("template = %q, want wechat-default", out.TemplateID)
	}
	if out.Target != "李四-技术" {
		t.Errorf("target = %q", out.Target)
	}
	if !strings.Contains(out.Content, "预算评审") || !strings.Contains(out.Content, "明天上午09:00") {
		t.Errorf("content = %q", out.Content)
	}
}

func TestPreviewNotification_UnknownContact(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	result := callTool(t, srv, "preview_notification", map[string]any{"contact_id": "nobody"})
	if !result.IsError {
		t.Fatal("expected error result for unknown contact")
	}
}

func TestPreviewNotification_InvalidChannel(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	result := callTool(t, srv, "preview_notification", map[string]any{"contact_id": "c1", "channel": "fax"})
	if !result.IsError || !strings.Contains(extractText(result), "invalid channel") {
		t.Fatalf("expected invalid channel error, got %s", extractText(result))
	}
}

func TestDispatchNotification(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	var out outcomeOutput
	decodeResult(t, callTool(t, srv, "dispatch_notification", map[string]any{"contact_id": "c1", "channel": "sms"}), &out)

	if out.Status != "sent" || len(out.TaskIDs) != 2 {
		t.Errorf("outcome = %+v", out)
	}
	if len(f.bridge.requests) != 1 || f.bridge.requests[0].Target != "13800000001" {
		t.Fatalf("bridge requests = %+v", f.bridge.requests)
	}

	tasks, err := f.tasks.LoadTasks()
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range tasks {
		p, _ := task.Participant("c1")
		if !p.IsSent {
			t.Errorf("c1 not marked sent on %s", task.ID)
		}
	}
}

func TestDispatchNotification_BridgeFailure(t *testing.T) {
	f := newFixture(t)
	f.bridge.err = &core.DispatchError{Reason: "window not found", Err: errors.New("no window")}
	srv := NewServer(f.svc, nil, nil, "test")

	result := callTool(t, srv, "dispatch_notification", map[string]any{"contact_id": "c2"})
	if !result.IsError {
		t.Fatal("expected error result for bridge failure")
	}
	if !strings.Contains(extractText(result), "window not found") {
		t.Errorf("error text = %q", extractText(result))
	}

	tasks, _ := f.tasks.LoadTasks()
	p, _ := tasks[0].Participant("c2")
	if p.IsSent {
		t.Error("failed dispatch must not mark the contact sent")
	}
}

func TestSkipNotification(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, nil, nil, "test")

	var out outcomeOutput
	decodeResult(t, callTool(t, srv, "skip_notification", map[string]any{"contact_id": "c1"}), &out)

	if out.Status != "skipped" {
		t.Errorf("status = %q, want skipped", out.Status)
	}
	if len(f.bridge.requests) != 0 {
		t.Error("skip must not reach the bridge")
	}
}

func TestValidateTemplate(t *testing.T) {
	srv := NewServer(newFixture(t).svc, nil, nil, "test")

	tests := []struct {
		name      string
		tmplType  string
		content   string
		wantValid bool
	}{
		{"clean", "wechat", "{{姓名}}您好，{{时间}}开会", true},
		{"unknown token", "sms", "{{名字}}您好", false},
		{"meeting list outside multi", "wechat", "{{会议列表}}", false},
		{"meeting list in multi", "multi", "{{会议数}}场：{{会议列表}}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out validateTemplateOutput
			decodeResult(t, callTool(t, srv, "validate_template", map[string]any{"type": tt.tmplType, "content": tt.content}), &out)
			if out.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (problems %v)", out.Valid, tt.wantValid, out.Problems)
			}
		})
	}
}

func TestValidateTemplate_InvalidType(t *testing.T) {
	srv := NewServer(newFixture(t).svc, nil, nil, "test")

	result := callTool(t, srv, "validate_template", map[string]any{"type": "email", "content": "x"})
	if !result.IsError {
		t.Fatal("expected error result for invalid template type")
	}
}

func TestGetSummary(t *testing.T) {
	srv := NewServer(newFixture(t).svc, nil, nil, "test")

	var out core.Summary
	decodeResult(t, callTool(t, srv, "get_summary", map[string]any{}), &out)

	if out.Meetings != 2 || out.Participants != 3 || out.QueuedPeople != 2 || out.ConflictCases != 1 {
		t.Errorf("summary = %+v", out)
	}
}

func TestGetMetrics(t *testing.T) {
	oldest := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{
		Sent:           3,
		Failed:         1,
		SentByChannel:  map[string]int{"wechat": 3},
		FailureReasons: map[string]int{"timeout": 1},
		EventCount:     4,
		OldestEvent:    &oldest,
	}}
	srv := NewServer(newFixture(t).svc, mc, nil, "test")

	var out metricsOutput
	decodeResult(t, callTool(t, srv, "get_metrics", map[string]any{"since": "30d"}), &out)

	if out.Sent != 3 || out.Failed != 1 || out.SuccessRate != 75 {
		t.Errorf("metrics = %+v", out)
	}
	if out.OldestEvent != "2024-01-10T09:00:00Z" {
		t.Errorf("oldest = %q", out.OldestEvent)
	}
}

func TestGetMetricsUnavailable(t *testing.T) {
	srv := NewServer(newFixture(t).svc, nil, nil, "test")

	result := callTool(t, srv, "get_metrics", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error result when metrics are disabled")
	}
}

func TestGetAlerts(t *testing.T) {
	ae := &fakeAlertEngine{alerts: []observability.Alert{{
		ID:          "failing-c1",
		Condition:   "contact_failing",
		Severity:    observability.SeverityHigh,
		Message:     "contact c1 failed 3 times in a row (last: timeout)",
		TriggeredAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}}}
	srv := NewServer(newFixture(t).svc, nil, ae, "test")

	var out getAlertsOutput
	decodeResult(t, callTool(t, srv, "get_alerts", map[string]any{}), &out)

	if out.Count != 1 || out.Alerts[0].Severity != "high" {
		t.Errorf("alerts = %+v", out)
	}
}
