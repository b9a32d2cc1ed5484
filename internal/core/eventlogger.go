package core

// Event types written by the notification service.
const (
	EventNotificationSent    = "notification.sent"
	EventNotificationFailed  = "notification.failed"
	EventNotificationSkipped = "notification.skipped"
	EventTemplateMissing     = "template.missing"
	EventSettingsSaved       = "settings.saved"
	EventDataImported        = "data.imported"
)

// EventLogger is the subset of the observability event log the notification
// service writes to. Defining it here avoids importing the observability
// package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
