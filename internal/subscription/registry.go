// Package subscription tracks listening subscriptions and the feed of
// simulated push notifications delivered to them.
package subscription

import (
	"fmt"
	"sync"
	"time"

	"github.com/your-username/appsync-flow-simulator/internal/mockdata"
	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/ringbuf"
)

// DefaultFeedCapacity is the number of feed messages retained
const DefaultFeedCapacity = 50

// Registry holds active subscription ids in start order and the bounded feed.
type Registry struct {
	mu     sync.RWMutex
	nextID int
	active []string
	feed   *ringbuf.Buffer[models.FeedMessage]
	now    func() time.Time
}

func NewRegistry(feedCapacity int) *Registry {
	if feedCapacity <= 0 {
		feedCapacity = DefaultFeedCapacity
	}
	return &Registry{
		nextID: 1,
		feed:   ringbuf.New[models.FeedMessage](feedCapacity),
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Start allocates the next sequential id and marks it as listening
func (r *Registry) Start() (string, models.FeedMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("sub-%d", r.nextID)
	r.nextID++
	r.active = append(r.active, id)

	msg := r.appendLocked(fmt.Sprintf("Subscription %s started - listening for updates...", id), false, nil)
	return id, msg
}

// Stop removes the oldest active subscription. It is a no-op when none are active.
func (r *Registry) Stop() (string, models.FeedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return "", models.FeedMessage{}, false
	}
	id := r.active[0]
	r.active = r.active[1:]

	msg := r.appendLocked(fmt.Sprintf("Subscription %s stopped", id), false, nil)
	return id, msg, true
}

// StopID removes a specific subscription
func (r *Registry) StopID(id string) (models.FeedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, active := range r.active {
		if active != id {
			continue
		}
		r.active = append(r.active[:i:i], r.active[i+1:]...)
		return r.appendLocked(fmt.Sprintf("Subscription %s stopped", id), false, nil), true
	}
	return models.FeedMessage{}, false
}

// Trigger pushes one synthetic "post created" update to every active subscription
func (r *Registry) Trigger() []models.FeedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return nil
	}

	payload := mockdata.TriggerPayload(r.now())
	msgs := make([]models.FeedMessage, 0, len(r.active))
	for _, id := range r.active {
		text := fmt.Sprintf("[%s] New post created: %s", id, payload["title"])
		msgs = append(msgs, r.appendLocked(text, true, payload))
	}
	return msgs
}

// BroadcastMutation notifies every active subscription that a mutation completed
func (r *Registry) BroadcastMutation(operationName string) []models.FeedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]models.FeedMessage, 0, len(r.active))
	for _, id := range r.active {
		text := fmt.Sprintf("[%s] Mutation %s triggered update", id, operationName)
		msgs = append(msgs, r.appendLocked(text, true, nil))
	}
	return msgs
}

// Active returns the listening ids in start order
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.active))
	copy(out, r.active)
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Feed returns the retained feed messages, oldest first
func (r *Registry) Feed() []models.FeedMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feed.Items()
}

func (r *Registry) appendLocked(text string, isNew bool, data interface{}) models.FeedMessage {
	msg := models.FeedMessage{
		Timestamp: r.now(),
		Message:   text,
		New:       isNew,
		Data:      data,
	}
	r.feed.Push(msg)
	return msg
}
