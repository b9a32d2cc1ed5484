package cli

import (
	"strings"
	"testing"

	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
)

func TestSettingsShowCmd(t *testing.T) {
	newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := settingsShowCmd.RunE(settingsShowCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	for _, want := range []string{"departments:", "采购部", "multi-default"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings show missing %q", want)
		}
	}
}

func TestSettingsValidateCmd(t *testing.T) {
	f := newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := settingsValidateCmd.RunE(settingsValidateCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Settings are valid.") {
		t.Errorf("output = %q", out)
	}

	settings, _ := f.svc.Settings()
	settings.RPADelayMin, settings.RPADelayMax = 9, 1
	if err := f.svc.SaveSettings(settings); err == nil {
		t.Fatal("saving inverted delay range should fail")
	}
}

func TestVocabularyCmds(t *testing.T) {
	f := newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := vocabularyAddCmd.RunE(vocabularyAddCmd, []string{"departments", "后勤处"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, `Added "后勤处" in departments.`) {
		t.Errorf("output = %q", out)
	}
	settings, _ := f.svc.Settings()
	if !contains(settings.Departments, "后勤处") {
		t.Fatalf("departments = %v", settings.Departments)
	}

	out = captureStdout(t, func() {
		if err := vocabularyAddCmd.RunE(vocabularyAddCmd, []string{"dept", "后勤处"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "already present") {
		t.Errorf("duplicate add output = %q", out)
	}

	captureStdout(t, func() {
		if err := vocabularyRemoveCmd.RunE(vocabularyRemoveCmd, []string{"positions", "工"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	settings, _ = f.svc.Settings()
	if contains(settings.Positions, "工") {
		t.Errorf("positions = %v", settings.Positions)
	}

	if err := vocabularyAddCmd.RunE(vocabularyAddCmd, []string{"rooms", "A"}); err == nil {
		t.Error("unknown vocabulary should fail")
	}
}

func TestTemplateListAndShow(t *testing.T) {
	newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := templateListCmd.RunE(templateListCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	for _, id := range []string{"sms-default", "wechat-default", "wechat-online", "multi-default"} {
		if !strings.Contains(out, id) {
			t.Errorf("template list missing %s", id)
		}
	}

	out = captureStdout(t, func() {
		if err := templateShowCmd.RunE(templateShowCmd, []string{"multi-default"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Tokens: 称呼 会议数 会议列表") {
		t.Errorf("template show = %q", out)
	}

	if err := templateShowCmd.RunE(templateShowCmd, []string{"nope"}); err == nil {
		t.Error("unknown template should fail")
	}
}

func TestTemplateValidateCmd(t *testing.T) {
	f := newCLIFixture(t)

	out := captureStdout(t, func() {
		if err := templateValidateCmd.RunE(templateValidateCmd, nil); err != nil {
			t.Fatalf("default templates should validate: %v", err)
		}
	})
	if strings.Contains(out, "FAIL") {
		t.Errorf("output = %q", out)
	}

	settings, _ := f.svc.Settings()
	settings.Templates = append(settings.Templates, models.Template{
		ID: "broken", Name: "坏模板", Type: models.TemplateSMS, Content: "{{会议列表}} {{房间}}",
	})
	// Written around validation, as a hand edit of settings.yaml would be.
	if err := core.NewSettingsManager(f.base).Save(settings); err != nil {
		t.Fatal(err)
	}

	var err error
	out = captureStdout(t, func() { err = templateValidateCmd.RunE(templateValidateCmd, []string{"broken"}) })
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out, "FAIL  broken") || !strings.Contains(out, "{{房间}}") {
		t.Errorf("output = %q", out)
	}
}
