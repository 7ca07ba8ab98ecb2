package client

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/lvsctl/internal/protocol"
)

// Notification is delivered to subscribers for every dispatched inbound message.
type Notification struct {
	Kind       protocol.Kind
	Message    protocol.Message
	ReceivedAt time.Time
}

// Handler receives notifications on the listener goroutine. It must not block
// for long and must not call the client's command methods synchronously.
type Handler func(Notification)

type subscription struct {
	id int
	fn Handler
}

// registry fans notifications out in registration order.
type registry struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger *slog.Logger
}

func (r *registry) add(fn Handler) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscription{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *registry) publish(n Notification) {
	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()

	for _, s := range subs {
		r.deliver(s, n)
	}
}

func (r *registry) deliver(s subscription, n Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("subscriber panicked", "subscriber", s.id, "kind", n.Kind.String(), "panic", fmt.Sprint(rec))
		}
	}()
	s.fn(n)
}
