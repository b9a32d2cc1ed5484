package models

import (
	"fmt"
	"strings"
	"time"
)

// MeetingMode is the modality of a whole meeting.
type MeetingMode string

const (
	MeetingOffline MeetingMode = "offline" // in person only
	MeetingOnline  MeetingMode = "online"  // remote only
	MeetingMixed   MeetingMode = "mixed"
)

// ParticipantMode is how one participant attends a mixed meeting.
type ParticipantMode string

const (
	ParticipantOffline ParticipantMode = "offline"
	ParticipantOnline  ParticipantMode = "online"
)

// TaskStatus is the lifecycle state of a meeting task.
type TaskStatus string

const (
	TaskDraft     TaskStatus = "draft"
	TaskSending   TaskStatus = "sending"
	TaskCompleted TaskStatus = "completed"
)

// TaskTimeLayouts are the accepted encodings of MeetingTask.Time. The first
// one is what browser datetime-local inputs produce.
var TaskTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

// ProcurementInfo carries the procurement figures recorded for a procurement
// specialist on one meeting.
type ProcurementInfo struct {
	Method string `yaml:"method" json:"method"`
	Budget string `yaml:"budget" json:"budget"`
}

// FileSelectionKind tags a FileSelection.
type FileSelectionKind string

const (
	FilesDefault FileSelectionKind = "default"
	FilesCustom  FileSelectionKind = "custom"
)

// FileSelection says which attachments apply to one participant: the task's
// defaults, or a custom list. Files is ignored unless Kind is FilesCustom.
type FileSelection struct {
	Kind  FileSelectionKind `yaml:"kind" json:"kind"`
	Files []string          `yaml:"files,omitempty" json:"files,omitempty"`
}

// DefaultFiles selects the task's attachment list.
func DefaultFiles() FileSelection {
	return FileSelection{Kind: FilesDefault}
}

// CustomFiles selects an explicit attachment list. An empty list means the
// participant receives no attachments.
func CustomFiles(files ...string) FileSelection {
	return FileSelection{Kind: FilesCustom, Files: append([]string{}, files...)}
}

// Resolve returns the effective attachment names given the task defaults.
func (s FileSelection) Resolve(taskDefaults []string) []string {
	if s.Kind == FilesCustom {
		return append([]string{}, s.Files...)
	}
	return append([]string{}, taskDefaults...)
}

// ParticipantStatus joins a task to a contact and carries the per-person
// facts the renderer honours.
type ParticipantStatus struct {
	ContactID   string           `yaml:"contact_id" json:"contactId"`
	Mode        ParticipantMode  `yaml:"mode" json:"mode"`
	IsSent      bool             `yaml:"is_sent" json:"isSent"`
	Replied     bool             `yaml:"replied" json:"replied"`
	TemplateID  string           `yaml:"template_id,omitempty" json:"templateId,omitempty"`
	Files       FileSelection    `yaml:"files" json:"files"`
	Procurement *ProcurementInfo `yaml:"procurement,omitempty" json:"procurementInfo,omitempty"`
}

// MeetingTask is one scheduled meeting and its participants.
type MeetingTask struct {
	ID                string              `yaml:"id" json:"id"`
	Subject           string              `yaml:"subject" json:"subject"`
	Time              string              `yaml:"time" json:"time"`
	Location          string              `yaml:"location,omitempty" json:"location,omitempty"`
	MeetingID         string              `yaml:"meeting_id,omitempty" json:"meetingId,omitempty"`
	MeetingLink       string              `yaml:"meeting_link,omitempty" json:"meetingLink,omitempty"`
	ContactPerson     string              `yaml:"contact_person,omitempty" json:"contactPerson,omitempty"`
	ContactPhone      string              `yaml:"contact_phone,omitempty" json:"contactPhone,omitempty"`
	DefaultTemplateID string              `yaml:"default_template_id,omitempty" json:"defaultTemplateId,omitempty"`
	Attachments       []string            `yaml:"attachments,omitempty" json:"attachments"`
	Mode              MeetingMode         `yaml:"mode" json:"mode"`
	Status            TaskStatus          `yaml:"status" json:"status"`
	CreatedAt         int64               `yaml:"created_at" json:"createdAt"`
	Participants      []ParticipantStatus `yaml:"participants" json:"participants"`
}

// StartTime parses Time in loc. Times without a zone are wall-clock times in
// loc; times carrying an offset are converted into loc.
func (t MeetingTask) StartTime(loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(t.Time)
	if raw == "" {
		return time.Time{}, fmt.Errorf("meeting %s has no start time", t.ID)
	}
	for _, layout := range TaskTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("meeting %s: unrecognised start time %q", t.ID, raw)
}

// Participant returns the participant record for contactID.
func (t MeetingTask) Participant(contactID string) (ParticipantStatus, bool) {
	for _, p := range t.Participants {
		if p.ContactID == contactID {
			return p, true
		}
	}
	return ParticipantStatus{}, false
}

// EffectiveMode is the modality that applies to one participant: the task's
// own mode unless the task is mixed, in which case the participant decides.
func (t MeetingTask) EffectiveMode(p ParticipantStatus) ParticipantMode {
	switch t.Mode {
	case MeetingOnline:
		return ParticipantOnline
	case MeetingOffline:
		return ParticipantOffline
	}
	if p.Mode == ParticipantOnline {
		return ParticipantOnline
	}
	return ParticipantOffline
}

// IsOpen reports whether the task still takes part in notification.
func (t MeetingTask) IsOpen() bool {
	return t.Status != TaskCompleted
}
