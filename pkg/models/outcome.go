package models

import "time"

// OutcomeStatus is the result of one dispatch attempt.
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome records what happened when a work item was dispatched or skipped.
type Outcome struct {
	ID        string        `json:"id"`
	ContactID string        `json:"contactId"`
	Channel   Channel       `json:"channel"`
	Status    OutcomeStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	TaskIDs   []string      `json:"taskIds"`
	Files     []string      `json:"files,omitempty"`
	At        time.Time     `json:"at"`
}
