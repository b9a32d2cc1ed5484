package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// ErrContactNotFound is returned when an operation names a contact that has
// no entry in the current work queue.
var ErrContactNotFound = errors.New("contact not found in work queue")

// BridgeFactory builds the delivery bridge for the current settings.
type BridgeFactory func(settings *models.Settings) Bridge

// Preview is the rendered message for one work item, before dispatch.
type Preview struct {
	Item     models.WorkItem `json:"item"`
	Channel  models.Channel  `json:"channel"`
	Template models.Template `json:"template"`
	Content  string          `json:"content"`
	Files    []string        `json:"files"`
	Target   string          `json:"target"`
	// Missing is set when no template resolved and Content holds the
	// placeholder text.
	Missing bool `json:"missing"`
}

// SendRequest asks the service to dispatch one work item.
type SendRequest struct {
	ContactID string
	Channel   models.Channel
	// Content overrides the rendered text when non-empty.
	Content string
	// Files overrides the merged attachment list when non-nil.
	Files  []string
	DryRun bool
}

// NotificationService runs the engine against the persisted collections.
// Every entry point reloads contacts, tasks and settings, so the queue is
// always recomputed from current state.
type NotificationService interface {
	Queue(pendingOnly bool) ([]models.WorkItem, error)
	Preview(contactID string, channel models.Channel) (*Preview, error)
	Send(ctx context.Context, req SendRequest) (models.Outcome, error)
	Skip(contactID string, channel models.Channel) (models.Outcome, error)
	Summary() (Summary, error)

	Contacts() ([]models.Contact, error)
	ReplaceContacts(contacts []models.Contact) error
	Tasks() ([]models.MeetingTask, error)
	ReplaceTasks(tasks []models.MeetingTask) error
	UpdateTasks(fn func([]models.MeetingTask) ([]models.MeetingTask, error)) error

	Settings() (*models.Settings, error)
	SaveSettings(settings *models.Settings) error
}

// ServiceConfig collects the collaborators of a NotificationService.
type ServiceConfig struct {
	Settings SettingsManager
	Contacts ContactStore
	Tasks    TaskStore
	Bridge   BridgeFactory
	DryRun   BridgeFactory
	Events   EventLogger
	Now      func() time.Time
}

type notificationService struct {
	settings SettingsManager
	contacts ContactStore
	tasks    TaskStore
	bridge   BridgeFactory
	dryRun   BridgeFactory
	events   EventLogger
	now      func() time.Time
}

// NewNotificationService creates a NotificationService. A nil Events logger
// disables event logging; a nil Now uses the wall clock.
func NewNotificationService(cfg ServiceConfig) NotificationService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &notificationService{
		settings: cfg.Settings,
		contacts: cfg.Contacts,
		tasks:    cfg.Tasks,
		bridge:   cfg.Bridge,
		dryRun:   cfg.DryRun,
		events:   cfg.Events,
		now:      now,
	}
}

type snapshot struct {
	settings *models.Settings
	contacts []models.Contact
	tasks    []models.MeetingTask
}

func (s *notificationService) load() (*snapshot, error) {
	settings, err := s.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	contacts, err := s.contacts.LoadContacts()
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	tasks, err := s.tasks.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return &snapshot{settings: settings, contacts: contacts, tasks: tasks}, nil
}

func (snap *snapshot) queue() []models.WorkItem {
	return BuildWorkQueue(snap.tasks, snap.contacts, snap.settings.QueueOrder)
}

func (snap *snapshot) item(contactID string) (models.WorkItem, error) {
	item, _, ok := FindWorkItem(snap.queue(), contactID)
	if !ok {
		return models.WorkItem{}, fmt.Errorf("%w: %s", ErrContactNotFound, contactID)
	}
	return item, nil
}

func (s *notificationService) Queue(pendingOnly bool) ([]models.WorkItem, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	queue := snap.queue()
	if pendingOnly {
		queue = FilterPending(queue)
	}
	return queue, nil
}

func (s *notificationService) Preview(contactID string, channel models.Channel) (*Preview, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	item, err := snap.item(contactID)
	if err != nil {
		return nil, err
	}
	return s.preview(snap, item, channel), nil
}

func (s *notificationService) preview(snap *snapshot, item models.WorkItem, channel models.Channel) *Preview {
	if channel == "" {
		channel = models.ChannelWechat
	}
	r := NewRenderer(snap.settings.Render, snap.contacts)
	content, tmpl, err := r.RenderOrPlaceholder(item, channel, snap.settings.Templates, s.now())
	p := &Preview{
		Item:     item,
		Channel:  channel,
		Template: tmpl,
		Content:  content,
		Files:    item.Attachments(),
		Target:   DeliveryTarget(item.Contact, channel),
	}
	if err != nil {
		p.Missing = true
		s.logEvent(EventTemplateMissing, map[string]any{
			"contact_id": item.Contact.ID,
			"channel":    string(channel),
			"error":      err.Error(),
		})
	}
	return p
}

// Send renders (unless content is supplied) and dispatches one work item. On
// success the person is marked sent on every task of the item in a single
// write; a dry run leaves sent state alone. On failure nothing is written
// and the error is a *DispatchError, or a *ResolveError when no template
// applies.
func (s *notificationService) Send(ctx context.Context, req SendRequest) (models.Outcome, error) {
	unlock, err := lockFile(s.tasks.LockPath())
	if err != nil {
		return models.Outcome{}, err
	}
	defer unlock() //nolint:errcheck

	snap, err := s.load()
	if err != nil {
		return models.Outcome{}, err
	}
	item, err := snap.item(req.ContactID)
	if err != nil {
		return models.Outcome{}, err
	}

	p := s.preview(snap, item, req.Channel)
	content := req.Content
	if content == "" {
		if p.Missing {
			_, rerr := ResolveTemplate(item, p.Channel, snap.settings.Templates)
			return models.Outcome{}, rerr
		}
		content = p.Content
	}
	files := p.Files
	if req.Files != nil {
		files = req.Files
	}

	factory := s.bridge
	if req.DryRun {
		factory = s.dryRun
	}
	var bridge Bridge
	if factory != nil {
		bridge = factory(snap.settings)
	}

	dispatcher := NewDispatcher(bridge, snap.settings.Bridge.Timeout)
	dispatcher.now = s.now
	outcome, err := dispatcher.Dispatch(ctx, item, p.Channel, content, files)
	data := map[string]any{
		"outcome_id": outcome.ID,
		"contact_id": item.Contact.ID,
		"channel":    string(p.Channel),
		"task_ids":   outcome.TaskIDs,
		"template":   p.Template.ID,
		"dry_run":    req.DryRun,
	}
	if err != nil {
		data["reason"] = outcome.Message
		s.logEvent(EventNotificationFailed, data)
		return outcome, err
	}

	if !req.DryRun {
		updated := MarkSent(snap.tasks, item.Contact.ID, outcome.TaskIDs)
		if err := s.tasks.SaveTasks(updated); err != nil {
			return outcome, fmt.Errorf("recording sent state for %s: %w", item.Contact.ID, err)
		}
	}
	s.logEvent(EventNotificationSent, data)
	return outcome, nil
}

// Skip moves past a work item without dispatching. Sent state is never
// touched.
func (s *notificationService) Skip(contactID string, channel models.Channel) (models.Outcome, error) {
	snap, err := s.load()
	if err != nil {
		return models.Outcome{}, err
	}
	item, err := snap.item(contactID)
	if err != nil {
		return models.Outcome{}, err
	}
	at := s.now().UTC()
	out := models.Outcome{
		ID:        NewOutcomeID(at),
		ContactID: item.Contact.ID,
		Channel:   channel,
		Status:    models.OutcomeSkipped,
		TaskIDs:   item.TaskIDs(),
		At:        at,
	}
	s.logEvent(EventNotificationSkipped, map[string]any{
		"outcome_id": out.ID,
		"contact_id": out.ContactID,
		"channel":    string(channel),
		"task_ids":   out.TaskIDs,
	})
	return out, nil
}

func (s *notificationService) Summary() (Summary, error) {
	contacts, err := s.contacts.LoadContacts()
	if err != nil {
		return Summary{}, fmt.Errorf("loading contacts: %w", err)
	}
	tasks, err := s.tasks.LoadTasks()
	if err != nil {
		return Summary{}, fmt.Errorf("loading tasks: %w", err)
	}
	return Summarize(tasks, contacts), nil
}

func (s *notificationService) Contacts() ([]models.Contact, error) {
	return s.contacts.LoadContacts()
}

func (s *notificationService) ReplaceContacts(contacts []models.Contact) error {
	for i, c := range contacts {
		if c.ID == "" {
			return fmt.Errorf("contact #%d has no id", i+1)
		}
	}
	return s.contacts.SaveContacts(contacts)
}

func (s *notificationService) Tasks() ([]models.MeetingTask, error) {
	return s.tasks.LoadTasks()
}

func (s *notificationService) ReplaceTasks(tasks []models.MeetingTask) error {
	return s.UpdateTasks(func([]models.MeetingTask) ([]models.MeetingTask, error) {
		return tasks, nil
	})
}

// UpdateTasks applies fn to the task collection under the task lock and
// saves the result. Participant lists are checked for duplicate contacts.
func (s *notificationService) UpdateTasks(fn func([]models.MeetingTask) ([]models.MeetingTask, error)) error {
	unlock, err := lockFile(s.tasks.LockPath())
	if err != nil {
		return err
	}
	defer unlock() //nolint:errcheck

	tasks, err := s.tasks.LoadTasks()
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	updated, err := fn(tasks)
	if err != nil {
		return err
	}
	if err := CheckTasks(updated); err != nil {
		return err
	}
	return s.tasks.SaveTasks(updated)
}

// CheckTasks reports tasks without an id, duplicate task ids and participant
// lists naming a contact more than once.
func CheckTasks(tasks []models.MeetingTask) error {
	ids := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("task #%d has no id", i+1)
		}
		if ids[t.ID] {
			return fmt.Errorf("task id %q is used more than once", t.ID)
		}
		ids[t.ID] = true
		seen := make(map[string]bool, len(t.Participants))
		for _, p := range t.Participants {
			if seen[p.ContactID] {
				return fmt.Errorf("task %s lists contact %s more than once", t.ID, p.ContactID)
			}
			seen[p.ContactID] = true
		}
	}
	return nil
}

func (s *notificationService) Settings() (*models.Settings, error) {
	return s.settings.Load()
}

// SaveSettings validates settings and writes them back whole.
func (s *notificationService) SaveSettings(settings *models.Settings) error {
	if err := s.settings.Validate(settings); err != nil {
		return err
	}
	if err := s.settings.Save(settings); err != nil {
		return err
	}
	s.logEvent(EventSettingsSaved, map[string]any{
		"templates":   len(settings.Templates),
		"departments": len(settings.Departments),
		"positions":   len(settings.Positions),
	})
	return nil
}

func (s *notificationService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
