// Package transport stands in for the low-level messaging layer the spec
// declares out of scope: point-to-point, unreliable delivery between named
// process identifiers. Registry is the single-process implementation used
// by this module's roles and by tests; a real deployment would replace it
// with whatever the overlay's transport actually is without touching any
// caller of the Transport interface.
package transport

import (
	"sync"

	"github.com/ringkv/paxoscommit/internal/actor"
)

// Transport delivers a message to a named actor. Delivery is
// best-effort: a Send to a PID with no registered mailbox is dropped, the
// same as a message lost in flight to a crashed or unreachable peer.
type Transport interface {
	Send(to actor.PID, from actor.PID, payload any)
}

// Registry is an in-memory Transport backed by a table of live mailboxes.
type Registry struct {
	mu        sync.RWMutex
	mailboxes map[actor.PID]*actor.Mailbox
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{mailboxes: make(map[actor.PID]*actor.Mailbox)}
}

// Register makes pid reachable through mailbox. Registering the same pid
// twice replaces the previous mailbox, as happens when a role restarts.
func (r *Registry) Register(pid actor.PID, mailbox *actor.Mailbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mailboxes[pid] = mailbox
}

// Unregister removes pid, after which sends to it are silently dropped.
func (r *Registry) Unregister(pid actor.PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mailboxes, pid)
}

// Send delivers payload to to's mailbox if one is registered.
func (r *Registry) Send(to actor.PID, from actor.PID, payload any) {
	r.mu.RLock()
	mailbox := r.mailboxes[to]
	r.mu.RUnlock()
	if mailbox == nil {
		return
	}
	mailbox.Deliver(actor.Envelope{To: to, From: from, Payload: payload})
}

// Reachable reports whether pid currently has a registered mailbox.
func (r *Registry) Reachable(pid actor.PID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mailboxes[pid]
	return ok
}
