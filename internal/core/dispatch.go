package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/valter-silva-au/mflow/pkg/models"
)

// DeliveryRequest is what the engine hands to the delivery collaborator.
// Target is the contact's chat handle for wechat and the phone number for sms.
type DeliveryRequest struct {
	Channel models.Channel
	Target  string
	Content string
	Files   []string
}

// Bridge delivers one rendered message. Implementations make exactly one
// outbound request and return a *DispatchError when delivery is not
// confirmed, whatever the cause.
type Bridge interface {
	Deliver(ctx context.Context, req DeliveryRequest) error
}

// DispatchError reports a delivery that was not confirmed. The person's sent
// flags are left untouched and the item stays in the queue.
type DispatchError struct {
	ContactID string
	Reason    string
	Err       error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("dispatching to %s: %s", e.ContactID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewOutcomeID returns a lexically sortable identifier for a dispatch
// attempt.
func NewOutcomeID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// Dispatcher hands rendered content to a Bridge, bounding each call with a
// timeout. A timed out call is reported exactly like an explicit failure.
type Dispatcher struct {
	bridge  Bridge
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. A zero timeout leaves the deadline to
// the caller's context.
func NewDispatcher(bridge Bridge, timeout time.Duration) *Dispatcher {
	return &Dispatcher{bridge: bridge, timeout: timeout, now: time.Now}
}

// DeliveryTarget returns the identifier the channel addresses a contact by.
func DeliveryTarget(c models.Contact, channel models.Channel) string {
	if channel == models.ChannelSMS {
		return c.Phone
	}
	return c.WechatRemark
}

// Dispatch delivers content for item over channel. On success the returned
// outcome has status sent; on failure it has status failed and the error is
// a *DispatchError. Dispatch itself never touches the task collection.
func (d *Dispatcher) Dispatch(ctx context.Context, item models.WorkItem, channel models.Channel, content string, files []string) (models.Outcome, error) {
	at := d.now().UTC()
	out := models.Outcome{
		ID:        NewOutcomeID(at),
		ContactID: item.Contact.ID,
		Channel:   channel,
		Status:    models.OutcomeFailed,
		TaskIDs:   item.TaskIDs(),
		Files:     files,
		At:        at,
	}

	fail := func(reason string, err error) (models.Outcome, error) {
		out.Message = reason
		return out, &DispatchError{ContactID: item.Contact.ID, Reason: reason, Err: err}
	}

	if d.bridge == nil {
		return fail("no delivery bridge configured", nil)
	}
	if !channel.Valid() {
		return fail(fmt.Sprintf("unsupported channel %q", channel), nil)
	}
	target := DeliveryTarget(item.Contact, channel)
	if target == "" {
		return fail(fmt.Sprintf("contact has no %s target", channel), nil)
	}
	if content == "" {
		return fail("message content is empty", nil)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := d.bridge.Deliver(ctx, DeliveryRequest{
		Channel: channel,
		Target:  target,
		Content: content,
		Files:   files,
	})
	if err != nil {
		var inner *DispatchError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fail("timeout", err)
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			return fail("cancelled", err)
		case errors.As(err, &inner):
			return fail(inner.Reason, inner.Err)
		}
		return fail("delivery failed", err)
	}

	out.Status = models.OutcomeSent
	return out, nil
}

// MarkSent returns a copy of tasks in which contactID is marked sent on every
// task listed in taskIDs. Lifecycle status advances as a side effect of the
// new flags: a draft task becomes sending, and a task whose participants are
// all sent becomes completed. The input slice is not modified.
func MarkSent(tasks []models.MeetingTask, contactID string, taskIDs []string) []models.MeetingTask {
	want := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}

	out := make([]models.MeetingTask, len(tasks))
	for i, task := range tasks {
		out[i] = task
		if !want[task.ID] {
			continue
		}
		parts := make([]models.ParticipantStatus, len(task.Participants))
		copy(parts, task.Participants)
		for j := range parts {
			if parts[j].ContactID == contactID {
				parts[j].IsSent = true
			}
		}
		out[i].Participants = parts
		out[i].Status = advanceStatus(out[i])
	}
	return out
}

func advanceStatus(task models.MeetingTask) models.TaskStatus {
	if task.Status == models.TaskCompleted {
		return task.Status
	}
	allSent := len(task.Participants) > 0
	anySent := false
	for _, p := range task.Participants {
		if p.IsSent {
			anySent = true
		} else {
			allSent = false
		}
	}
	switch {
	case allSent:
		return models.TaskCompleted
	case anySent:
		return models.TaskSending
	}
	return task.Status
}
