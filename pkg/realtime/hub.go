package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Change actions.
const (
	ActionInsert = "INSERT"
	ActionDelete = "DELETE"
	ActionUpdate = "UPDATE"
)

// Change announces that a row in Table was mutated.
type Change struct {
	Table  string    `json:"table"`
	Action string    `json:"action"`
	ID     string    `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

type subscriber struct {
	table string
	ch    chan Change
}

// Hub fans changes out to in-process subscribers. Slow subscribers lose messages
// instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	closed bool
	logger *zap.Logger
}

// NewHub creates a hub whose subscriber channels hold buffer pending changes.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[int]*subscriber), buffer: buffer, logger: logger}
}

// Subscribe registers interest in table ("" for every table). The returned cancel
// func unregisters and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(table string) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Change, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{table: table, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Broadcast delivers change to every matching subscriber without blocking.
func (h *Hub) Broadcast(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.table != "" && sub.table != change.Table {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.logger.Warn("dropping change for slow subscriber", zap.String("table", change.Table), zap.String("action", change.Action))
		}
	}
}

// Publish satisfies the publisher contract used by the content services.
func (h *Hub) Publish(_ context.Context, change Change) error {
	h.Broadcast(change)
	return nil
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unregisters all subscribers and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
