package service

import (
	"sync"
	"time"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/ports"
)

// NotificationQueue is an ordered list of transient notifications
type NotificationQueue struct {
	clock ports.Clock

	mu     sync.Mutex
	nextID int64
	items  []core.Notification
}

// NewNotificationQueue creates an empty queue. Ids start at 1.
func NewNotificationQueue(clock ports.Clock) *NotificationQueue {
	return &NotificationQueue{
		clock:  clock,
		nextID: 1,
	}
}

// Create appends a notification and returns its id. A positive autoClose removes it after that delay.
func (q *NotificationQueue) Create(category core.NotificationCategory, text string, autoClose time.Duration) int64 {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.items = append(q.items, core.Notification{ID: id, Category: category, Text: text})
	q.mu.Unlock()

	q.scheduleDismiss(id, autoClose)
	return id
}

// Update merges patch into the notification with id. Missing ids are ignored.
// A positive autoClose schedules its removal.
func (q *NotificationQueue) Update(id int64, patch core.NotificationPatch, autoClose time.Duration) {
	q.mu.Lock()
	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}
		item := &q.items[i]
		if patch.Category != nil {
			item.Category = *patch.Category
		}
		if patch.Text != nil {
			item.Text = *patch.Text
		}
		if patch.Signature != nil {
			item.Signature = *patch.Signature
		}
		if patch.ExplorerURL != nil {
			item.ExplorerURL = *patch.ExplorerURL
		}
		break
	}
	q.mu.Unlock()

	q.scheduleDismiss(id, autoClose)
}

// Dismiss removes the notification with id, reporting whether it was present
func (q *NotificationQueue) Dismiss(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the notification with id
func (q *NotificationQueue) Get(id int64) (core.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			return item, true
		}
	}
	return core.Notification{}, false
}

// List returns the notifications in creation order
func (q *NotificationQueue) List() []core.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]core.Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *NotificationQueue) scheduleDismiss(id int64, after time.Duration) {
	if after <= 0 {
		return
	}
	q.clock.AfterFunc(after, func() {
		q.Dismiss(id)
	})
}
