// Package core contains the notification engine for mflow: conflict
// indexing, work queue ordering, template resolution, token rendering,
// dispatch bookkeeping, and the settings layer that feeds them.
package core

import "github.com/valter-silva-au/mflow/pkg/models"

// ConflictIndex maps contact IDs to the open meetings that reference them.
// Order lists the contact IDs in the order they were first encountered.
type ConflictIndex struct {
	Order []string
	Tasks map[string][]models.MeetingTask
}

// Len returns the number of contacts in the index.
func (ci ConflictIndex) Len() int {
	return len(ci.Order)
}

// BuildConflictIndex scans the non-completed tasks, in collection order, and
// appends each task to the list of every participant it references.
// Participants whose contact ID is missing from contacts are skipped without
// creating an entry. A contact listed twice on one task is counted once.
func BuildConflictIndex(tasks []models.MeetingTask, contacts map[string]models.Contact) ConflictIndex {
	idx := ConflictIndex{Tasks: make(map[string][]models.MeetingTask)}

	for _, task := range tasks {
		if !task.IsOpen() {
			continue
		}
		seen := make(map[string]bool, len(task.Participants))
		for _, p := range task.Participants {
			if seen[p.ContactID] {
				continue
			}
			seen[p.ContactID] = true
			if _, ok := contacts[p.ContactID]; !ok {
				continue
			}
			if _, exists := idx.Tasks[p.ContactID]; !exists {
				idx.Order = append(idx.Order, p.ContactID)
			}
			idx.Tasks[p.ContactID] = append(idx.Tasks[p.ContactID], task)
		}
	}

	return idx
}
