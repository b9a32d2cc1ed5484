// Package internal provides the App struct that wires all components of
// mflow together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/valter-silva-au/mflow/internal/cli"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/integration"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/internal/storage"
	"github.com/valter-silva-au/mflow/pkg/models"
)

// EventLogFileName is the JSONL event log inside the base directory.
const EventLogFileName = ".mflow_events.jsonl"

// App holds all service dependencies for mflow.
type App struct {
	BasePath string

	// Configuration
	SettingsMgr core.SettingsManager

	// Storage layer
	Contacts storage.ContactStore
	Tasks    storage.TaskStore

	// Core services
	Service core.NotificationService

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the data directory
// holding settings.yaml, contacts.yaml, tasks.yaml and the outbox.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.SettingsMgr = core.NewSettingsManager(basePath)
	settings, err := app.SettingsMgr.Load()
	if err != nil {
		// Use defaults if the settings file is unreadable; commands that
		// need settings report the error when they load them again.
		settings = core.DefaultSettings()
	}

	// --- Storage layer ---
	app.Contacts = storage.NewContactStore(basePath)
	app.Tasks = storage.NewTaskStore(basePath)

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, alertThresholds(settings.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if settings.Alerts.WebhookURL != "" {
		app.Notifier = observability.NewWebhookNotifier(settings.Alerts.WebhookURL)
	}

	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	app.Service = core.NewNotificationService(core.ServiceConfig{
		Settings: app.SettingsMgr,
		Contacts: app.Contacts,
		Tasks:    app.Tasks,
		Bridge:   bridgeFactory,
		DryRun:   outboxFactory(basePath),
		Events:   evtAdapter,
	})

	cli.Service = app.Service
	cli.BasePath = basePath

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the data directory. MFLOW_HOME wins; otherwise
// the nearest ancestor of the working directory holding settings.yaml is
// used, falling back to the XDG data directory.
func ResolveBasePath() string {
	if home := os.Getenv("MFLOW_HOME"); home != "" {
		return home
	}

	if dir, err := os.Getwd(); err == nil {
		for {
			if _, err := os.Stat(filepath.Join(dir, core.SettingsFileName)); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return filepath.Join(xdg.DataHome, "mflow")
}

// alertThresholds overlays the configured alert settings on the defaults.
func alertThresholds(s models.AlertSettings) observability.AlertThresholds {
	t := observability.DefaultAlertThresholds()
	if s.ConsecutiveFailures > 0 {
		t.ConsecutiveFailures = s.ConsecutiveFailures
	}
	// Loading fills in the default rate, so zero or negative here was set
	// on purpose and turns the rate check off.
	t.FailureRatePercent = s.FailureRatePercent
	if s.MinAttempts > 0 {
		t.MinAttempts = s.MinAttempts
	}
	return t
}

func bridgeFactory(s *models.Settings) core.Bridge {
	return &bridgeAdapter{d: integration.NewBridgeClient(integration.BridgeConfigFromSettings(s))}
}

func outboxFactory(basePath string) core.BridgeFactory {
	return func(*models.Settings) core.Bridge {
		box, err := integration.NewOutboxBridge(basePath)
		if err != nil {
			return &unavailableBridge{reason: "outbox unavailable", err: err}
		}
		return &bridgeAdapter{d: box}
	}
}

// --- Adapters ---

// bridgeAdapter adapts an integration.Deliverer to core.Bridge.
type bridgeAdapter struct {
	d integration.Deliverer
}

func (a *bridgeAdapter) Deliver(ctx context.Context, req core.DeliveryRequest) error {
	err := a.d.Deliver(ctx, integration.Delivery{
		Channel: req.Channel,
		Target:  req.Target,
		Content: req.Content,
		Files:   req.Files,
	})
	if err == nil {
		return nil
	}
	var berr *integration.BridgeError
	if errors.As(err, &berr) {
		return &core.DispatchError{Reason: berr.Reason, Err: berr.Err}
	}
	return err
}

type unavailableBridge struct {
	reason string
	err    error
}

func (b *unavailableBridge) Deliver(context.Context, core.DeliveryRequest) error {
	return &core.DispatchError{Reason: b.reason, Err: b.err}
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelFor(eventType),
		Type:    eventType,
		Message: observability.Describe(eventType, data),
		Data:    data,
	})
}
