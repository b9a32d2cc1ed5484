package core

import "github.com/valter-silva-au/mflow/pkg/models"

// ContactStore persists the contact directory as one whole collection.
// This interface is defined locally in core to avoid importing storage.
type ContactStore interface {
	LoadContacts() ([]models.Contact, error)
	SaveContacts(contacts []models.Contact) error
}

// TaskStore persists the meeting task collection as one whole collection.
// This interface is defined locally in core to avoid importing storage.
type TaskStore interface {
	LoadTasks() ([]models.MeetingTask, error)
	SaveTasks(tasks []models.MeetingTask) error
	// LockPath names the file the service locks while it rewrites tasks.
	LockPath() string
}
