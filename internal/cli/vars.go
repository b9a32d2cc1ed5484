package cli

import (
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	Service core.NotificationService

	// BasePath is the data directory holding settings, contacts, tasks and
	// the dry-run outbox.
	BasePath string
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

func requireService() (core.NotificationService, error) {
	if Service == nil {
		return nil, errNotInitialized("notification service")
	}
	return Service, nil
}
