package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/mflow/internal/observability"
)

const exportJSON = `{
  "mf_contacts": "[{\"id\":\"1\",\"name\":\"张杰\",\"dept\":\"技术办\",\"phone\":\"13800138001\",\"position\":\"总\",\"wechatRemark\":\"技术办-张总\"}]",
  "mf_tasks": [
    {"id": "m1", "subject": "采购评审", "time": "2024-01-10T09:00", "mode": "纯线下", "status": "draft",
     "participants": [{"contactId": "1", "mode": "线下", "useDefaultFiles": true}]}
  ],
  "mf_settings": {"departments": ["技术办", "保卫处"], "rpaDelayMin": 1, "rpaDelayMax": 3}
}`

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(exportJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCmd_ReplacesCollections(t *testing.T) {
	f := newCLIFixture(t)
	path := writeExport(t)

	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := observability.NewJSONLEventLog(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()
	origLog := EventLog
	defer func() { EventLog = origLog }()
	EventLog = log

	out := captureStdout(t, func() {
		if err := importCmd.RunE(importCmd, []string{path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Imported 1 contact(s) and 1 meeting(s) and settings.") {
		t.Errorf("output = %q", out)
	}

	contacts, _ := f.svc.Contacts()
	if len(contacts) != 1 || contacts[0].Name != "张杰" {
		t.Errorf("contacts = %+v", contacts)
	}
	tasks, _ := f.svc.Tasks()
	if len(tasks) != 1 || tasks[0].ID != "m1" {
		t.Errorf("tasks = %+v", tasks)
	}
	settings, _ := f.svc.Settings()
	if !contains(settings.Departments, "保卫处") || settings.RPADelayMax != 3 {
		t.Errorf("settings not applied: %+v", settings.Departments)
	}
	if len(settings.Templates) == 0 {
		t.Error("templates absent from the export should be kept")
	}

	events, err := log.Read(observability.EventFilter{Type: "data.imported"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !strings.Contains(events[0].Message, "imported 1 contacts") {
		t.Errorf("events = %+v", events)
	}
}

func TestImportCmd_SkipSettings(t *testing.T) {
	f := newCLIFixture(t)
	path := writeExport(t)
	importSkipSettings = true
	defer func() { importSkipSettings = false }()

	out := captureStdout(t, func() {
		if err := importCmd.RunE(importCmd, []string{path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if strings.Contains(out, "settings") {
		t.Errorf("output = %q", out)
	}
	settings, _ := f.svc.Settings()
	if contains(settings.Departments, "保卫处") {
		t.Error("settings should be untouched with --skip-settings")
	}
}

func TestImportCmd_MissingFile(t *testing.T) {
	newCLIFixture(t)
	if err := importCmd.RunE(importCmd, []string{filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected error for missing export")
	}
}
