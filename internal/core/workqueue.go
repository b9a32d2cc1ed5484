package core

import (
	"sort"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// NormalizeQueueOrder maps unknown or empty policies to the default,
// most-conflicts-first.
func NormalizeQueueOrder(order models.QueueOrder) models.QueueOrder {
	if order == models.OrderFewestConflictsFirst {
		return order
	}
	return models.OrderMostConflictsFirst
}

// BuildWorkQueue recomputes the operator's work queue from the current task
// and contact collections. Items are sorted by conflict count according to
// order, ties keep first-appearance order from the conflict index. The inputs
// are not modified.
func BuildWorkQueue(tasks []models.MeetingTask, contacts []models.Contact, order models.QueueOrder) []models.WorkItem {
	lookup := models.ContactIndex(contacts)
	idx := BuildConflictIndex(tasks, lookup)
	return workQueueFromIndex(idx, lookup, order)
}

func workQueueFromIndex(idx ConflictIndex, lookup map[string]models.Contact, order models.QueueOrder) []models.WorkItem {
	queue := make([]models.WorkItem, 0, idx.Len())
	for _, id := range idx.Order {
		queue = append(queue, models.WorkItem{
			Contact: lookup[id],
			Tasks:   idx.Tasks[id],
		})
	}

	asc := NormalizeQueueOrder(order) == models.OrderFewestConflictsFirst
	sort.SliceStable(queue, func(i, j int) bool {
		if asc {
			return queue[i].ConflictCount() < queue[j].ConflictCount()
		}
		return queue[i].ConflictCount() > queue[j].ConflictCount()
	})

	return queue
}

// FilterPending keeps the items whose person still has at least one unsent
// participant record.
func FilterPending(queue []models.WorkItem) []models.WorkItem {
	out := make([]models.WorkItem, 0, len(queue))
	for _, item := range queue {
		if !item.AllSent() {
			out = append(out, item)
		}
	}
	return out
}

// FindWorkItem returns the queue entry for contactID.
func FindWorkItem(queue []models.WorkItem, contactID string) (models.WorkItem, int, bool) {
	for i, item := range queue {
		if item.Contact.ID == contactID {
			return item, i, true
		}
	}
	return models.WorkItem{}, -1, false
}

// QueueCursor tracks the active work item across queue recomputations. It
// remembers the active contact and its last position, so that when the
// contact drops out of a fresh queue the cursor lands on whoever moved into
// that slot.
type QueueCursor struct {
	contactID string
	index     int
}

// Seek makes contactID the active item.
func (c *QueueCursor) Seek(contactID string) {
	c.contactID = contactID
}

// ContactID returns the active contact, which may be empty before the first
// call to Current.
func (c *QueueCursor) ContactID() string {
	return c.contactID
}

// Current returns the active item in queue, defaulting to the first one.
func (c *QueueCursor) Current(queue []models.WorkItem) (models.WorkItem, bool) {
	if len(queue) == 0 {
		return models.WorkItem{}, false
	}
	if item, i, ok := FindWorkItem(queue, c.contactID); ok {
		c.index = i
		return item, true
	}
	i := c.index
	if i >= len(queue) {
		i = len(queue) - 1
	}
	if i < 0 {
		i = 0
	}
	c.index = i
	c.contactID = queue[i].Contact.ID
	return queue[i], true
}

// Next advances to the following item. It returns false, leaving the cursor
// in place, when the active item is the last one. Advancing never changes
// sent state.
func (c *QueueCursor) Next(queue []models.WorkItem) (models.WorkItem, bool) {
	if _, ok := c.Current(queue); !ok {
		return models.WorkItem{}, false
	}
	if c.index+1 >= len(queue) {
		return queue[c.index], false
	}
	c.index++
	c.contactID = queue[c.index].Contact.ID
	return queue[c.index], true
}
