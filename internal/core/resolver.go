package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// ErrNoTemplateFound is returned when no template can render a work item.
var ErrNoTemplateFound = errors.New("no template found")

// ResolveError describes a failed template resolution.
type ResolveError struct {
	ContactID string
	Channel   models.Channel
	Multi     bool
}

func (e *ResolveError) Error() string {
	if e.Multi {
		return fmt.Sprintf("resolving template for %s: no %s template configured", e.ContactID, models.TemplateMulti)
	}
	return fmt.Sprintf("resolving template for %s on %s: %s", e.ContactID, e.Channel, ErrNoTemplateFound)
}

func (e *ResolveError) Unwrap() error {
	return ErrNoTemplateFound
}

// ModalityKey returns the composite template ID used by convention for a
// channel and an effective participant mode, e.g. "wechat-online".
func ModalityKey(channel models.Channel, mode models.ParticipantMode) string {
	return string(channel) + "-" + string(mode)
}

// ResolveTemplate picks the template that renders item on channel.
//
// A person with more than one open meeting always gets the multi template.
// Otherwise the precedence is: the participant's template override, the
// task's default template, the "{channel}-{online|offline}" convention key,
// then the first template of the channel's type.
func ResolveTemplate(item models.WorkItem, channel models.Channel, templates []models.Template) (models.Template, error) {
	fail := &ResolveError{ContactID: item.Contact.ID, Channel: channel, Multi: item.IsMulti()}

	if len(item.Tasks) == 0 {
		return models.Template{}, fail
	}

	if item.IsMulti() {
		for _, t := range templates {
			if t.Type == models.TemplateMulti {
				return t, nil
			}
		}
		return models.Template{}, fail
	}

	task := item.Tasks[0]
	p := item.Participant(task)

	if t, ok := templateByID(templates, p.TemplateID); ok {
		return t, nil
	}
	if t, ok := templateByID(templates, task.DefaultTemplateID); ok {
		return t, nil
	}
	if t, ok := templateByID(templates, ModalityKey(channel, task.EffectiveMode(p))); ok {
		return t, nil
	}
	for _, t := range templates {
		if string(t.Type) == string(channel) {
			return t, nil
		}
	}

	return models.Template{}, fail
}

func templateByID(templates []models.Template, id string) (models.Template, bool) {
	if id == "" {
		return models.Template{}, false
	}
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}
