// Package notify delivers settlement events to in-process subscribers,
// typically SSE streams held open by the HTTP layer.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// Event is one settled transaction pushed to a user's subscribers
type Event struct {
	UserID      uuid.UUID
	Transaction *domain.Transaction
}

// Registry fans settlement events out to per-user subscriber channels.
// Sends never block: a subscriber that stops draining misses events
// rather than stalling the workflow.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
	buffer      int
}

// NewRegistry creates a registry whose subscriber channels hold up to
// buffer undelivered events
func NewRegistry(buffer int) *Registry {
	if buffer < 1 {
		buffer = 16
	}
	return &Registry{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a channel for the user's settlement events. The
// returned cancel func removes the subscription and closes the channel.
func (r *Registry) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, r.buffer)

	r.mu.Lock()
	set, ok := r.subscribers[userID]
	if !ok {
		set = make(map[chan Event]struct{})
		r.subscribers[userID] = set
	}
	set[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.subscribers[userID]; ok {
			if _, subscribed := set[ch]; subscribed {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(r.subscribers, userID)
				}
			}
		}
	}
	return ch, cancel
}

// TransactionSettled pushes the settled transaction to every subscriber
// of the owning user
func (r *Registry) TransactionSettled(userID uuid.UUID, tx *domain.Transaction) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.subscribers[userID]
	if !ok {
		return
	}
	event := Event{UserID: userID, Transaction: tx}
	for ch := range set {
		select {
		case ch <- event:
		default:
			logger.Error("notify registry subscriber buffer full, event dropped", nil, logger.Fields{
				"userId":        userID,
				"transactionId": tx.ID,
			})
		}
	}
}

// SubscriberCount reports the number of open subscriptions for the user
func (r *Registry) SubscriberCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[userID])
}
