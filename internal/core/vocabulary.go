package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// Vocabulary names an administrator-editable label list in the settings.
type Vocabulary string

const (
	VocabularyDepartments Vocabulary = "departments"
	VocabularyPositions   Vocabulary = "positions"
)

// ParseVocabulary accepts the plural or singular name of a vocabulary.
func ParseVocabulary(s string) (Vocabulary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "departments", "department", "dept":
		return VocabularyDepartments, nil
	case "positions", "position":
		return VocabularyPositions, nil
	}
	return "", fmt.Errorf("unknown vocabulary %q: must be departments or positions", s)
}

func vocabularyList(settings *models.Settings, v Vocabulary) (*[]string, error) {
	switch v {
	case VocabularyDepartments:
		return &settings.Departments, nil
	case VocabularyPositions:
		return &settings.Positions, nil
	}
	return nil, fmt.Errorf("unknown vocabulary %q", v)
}

// AddVocabularyEntry appends label to the vocabulary unless it is already
// present. It reports whether the settings changed.
func AddVocabularyEntry(settings *models.Settings, v Vocabulary, label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, fmt.Errorf("adding to %s: label is empty", v)
	}
	list, err := vocabularyList(settings, v)
	if err != nil {
		return false, err
	}
	for _, existing := range *list {
		if existing == label {
			return false, nil
		}
	}
	*list = append(*list, label)
	return true, nil
}

// RemoveVocabularyEntry drops label from the vocabulary. Contacts already
// carrying the label keep it; the vocabulary only seeds choices.
func RemoveVocabularyEntry(settings *models.Settings, v Vocabulary, label string) (bool, error) {
	list, err := vocabularyList(settings, v)
	if err != nil {
		return false, err
	}
	kept := (*list)[:0:0]
	removed := false
	for _, existing := range *list {
		if existing == label {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	*list = kept
	return removed, nil
}
