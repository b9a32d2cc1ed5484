package core

import (
	"strings"
	"testing"
)

func TestParseVocabulary(t *testing.T) {
	for in, want := range map[string]Vocabulary{
		"departments": VocabularyDepartments,
		"Dept":        VocabularyDepartments,
		"position":    VocabularyPositions,
	} {
		got, err := ParseVocabulary(in)
		if err != nil || got != want {
			t.Errorf("ParseVocabulary(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseVocabulary("colours"); err == nil {
		t.Error("expected error for unknown vocabulary")
	}
}

func TestVocabularyAddRemove(t *testing.T) {
	cfg := DefaultSettings()

	changed, err := AddVocabularyEntry(cfg, VocabularyPositions, " 主任 ")
	if err != nil || !changed {
		t.Fatalf("Add = %v, %v", changed, err)
	}
	changed, _ = AddVocabularyEntry(cfg, VocabularyPositions, "主任")
	if changed {
		t.Error("duplicate entry added")
	}
	if got := strings.Join(cfg.Positions, ","); got != "总,工,处,部,无,主任" {
		t.Errorf("Positions = %q", got)
	}

	removed, err := RemoveVocabularyEntry(cfg, VocabularyPositions, "工")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if got := strings.Join(cfg.Positions, ","); got != "总,处,部,无,主任" {
		t.Errorf("Positions = %q", got)
	}
	if removed, _ := RemoveVocabularyEntry(cfg, VocabularyPositions, "工"); removed {
		t.Error("removing a missing entry reported a change")
	}
	if _, err := AddVocabularyEntry(cfg, VocabularyDepartments, "  "); err == nil {
		t.Error("expected error for empty label")
	}
}
