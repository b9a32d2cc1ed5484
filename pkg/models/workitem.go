package models

// WorkItem groups one contact with every open meeting that references them.
// It is derived from the task and contact collections and never persisted.
type WorkItem struct {
	Contact Contact       `json:"contact"`
	Tasks   []MeetingTask `json:"tasks"`
}

// ConflictCount is the number of open meetings this person is implicated in.
func (w WorkItem) ConflictCount() int {
	return len(w.Tasks)
}

// IsMulti reports whether the item needs the multi-meeting template.
func (w WorkItem) IsMulti() bool {
	return len(w.Tasks) > 1
}

// Participant returns this contact's participant record on task.
func (w WorkItem) Participant(task MeetingTask) ParticipantStatus {
	p, _ := task.Participant(w.Contact.ID)
	return p
}

// TaskIDs lists the IDs of the item's tasks in queue order.
func (w WorkItem) TaskIDs() []string {
	ids := make([]string, len(w.Tasks))
	for i, t := range w.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// AllSent reports whether the person has been marked sent on every task.
func (w WorkItem) AllSent() bool {
	for _, t := range w.Tasks {
		if !w.Participant(t).IsSent {
			return false
		}
	}
	return len(w.Tasks) > 0
}

// Attachments merges the effective attachment lists of every task in the
// item, keeping first-seen order and dropping duplicates.
func (w WorkItem) Attachments() []string {
	seen := make(map[string]bool)
	var files []string
	for _, t := range w.Tasks {
		for _, f := range w.Participant(t).Files.Resolve(t.Attachments) {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	return files
}
