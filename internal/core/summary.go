package core

import "github.com/valter-silva-au/mflow/pkg/models"

// Summary holds the dashboard totals over the task collection.
type Summary struct {
	Meetings      int `json:"meetings" yaml:"meetings"`
	Draft         int `json:"draft" yaml:"draft"`
	Sending       int `json:"sending" yaml:"sending"`
	Completed     int `json:"completed" yaml:"completed"`
	Participants  int `json:"participants" yaml:"participants"`
	SentSlots     int `json:"sentSlots" yaml:"sent_slots"`
	RepliedSlots  int `json:"repliedSlots" yaml:"replied_slots"`
	QueuedPeople  int `json:"queuedPeople" yaml:"queued_people"`
	ConflictCases int `json:"conflictCases" yaml:"conflict_cases"`
}

// Summarize counts meetings by status and participant slots by flag, and
// measures the pending work queue built from the same collections.
func Summarize(tasks []models.MeetingTask, contacts []models.Contact) Summary {
	var s Summary
	s.Meetings = len(tasks)
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			s.Completed++
		case models.TaskSending:
			s.Sending++
		default:
			s.Draft++
		}
		for _, p := range t.Participants {
			s.Participants++
			if p.IsSent {
				s.SentSlots++
			}
			if p.Replied {
				s.RepliedSlots++
			}
		}
	}

	for _, item := range FilterPending(BuildWorkQueue(tasks, contacts, models.OrderMostConflictsFirst)) {
		s.QueuedPeople++
		if item.IsMulti() {
			s.ConflictCases++
		}
	}
	return s
}
