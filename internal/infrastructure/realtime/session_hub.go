// Package realtime carries push notifications: session changes between the
// components of one instance, and row changes from the database.
package realtime

import (
	"slices"
	"sync"

	"canteen/internal/domain"
)

type subscriber func(domain.SessionEvent, *domain.Session)

// SessionHub is the in-process session-change stream. Publish delivers
// synchronously, in subscription order, to the subscribers of one device.
type SessionHub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]subscriber
}

// NewSessionHub creates an empty hub.
func NewSessionHub() *SessionHub {
	return &SessionHub{subs: make(map[string]map[uint64]subscriber)}
}

// Implements domain.SessionNotifier.
var _ domain.SessionNotifier = (*SessionHub)(nil)

// Subscribe registers fn for deviceID. The returned func unsubscribes and is
// safe to call more than once.
func (h *SessionHub) Subscribe(deviceID string, fn func(domain.SessionEvent, *domain.Session)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[deviceID] == nil {
		h.subs[deviceID] = make(map[uint64]subscriber)
	}
	h.subs[deviceID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[deviceID], id)
			if len(h.subs[deviceID]) == 0 {
				delete(h.subs, deviceID)
			}
		})
	}
}

// Publish delivers an event to every subscriber of deviceID.
func (h *SessionHub) Publish(deviceID string, event domain.SessionEvent, session *domain.Session) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs[deviceID]))
	for id := range h.subs[deviceID] {
		ids = append(ids, id)
	}
	fns := make([]subscriber, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, h.subs[deviceID][id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// Subscribers returns the number of subscriptions for deviceID.
func (h *SessionHub) Subscribers(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[deviceID])
}
