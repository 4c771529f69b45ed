// Package actor provides the small single-threaded mailbox runtime the
// message-driven roles in this module (TM/RTM, TP host, store host) are
// built on: a private inbox, one goroutine draining it in order, and
// delayed self-sends in place of timers. The Paxos roles and the failure
// detector are plain mutex-guarded types, not mailbox actors.
package actor

import (
	"context"
	"time"

	"github.com/ringkv/paxoscommit/internal/clock"
)

// PID addresses one actor: a node identity plus the role it plays there.
// Two actors on different nodes never share mutable state; they only ever
// exchange messages addressed by PID.
type PID struct {
	Node string
	Role string
}

// Envelope is the unit of delivery between actors. Payload is carried as a
// Go value rather than a wire-encoded blob; the in-memory transport is the
// only transport in this module.
type Envelope struct {
	To      PID
	From    PID
	Payload any
}

// Mailbox is a single actor's private, ordered inbox. Sends never block the
// caller for long: the channel is buffered, and a full mailbox is a bug,
// not a backpressure signal, in this design.
type Mailbox struct {
	ch chan Envelope
}

// NewMailbox allocates a mailbox with the given buffer depth.
func NewMailbox(depth int) *Mailbox {
	if depth <= 0 {
		depth = 256
	}
	return &Mailbox{ch: make(chan Envelope, depth)}
}

// Deliver enqueues env for later processing. Delivery is per-channel
// ordered: the relative order of two sends from the same sender handle to
// the same mailbox is preserved.
func (m *Mailbox) Deliver(env Envelope) {
	m.ch <- env
}

// Chan exposes the underlying channel for actor run loops that need to
// select across the mailbox and other sources (delayed self-messages,
// shutdown).
func (m *Mailbox) Chan() <-chan Envelope {
	return m.ch
}

// Handler processes one envelope. Handlers run on the actor's single
// goroutine and never need internal locking over the actor's own state.
type Handler func(Envelope)

// Run drains mailbox on the calling goroutine until ctx is cancelled,
// invoking handle for every envelope in arrival order. Callers start this
// in its own goroutine per actor instance.
func Run(ctx context.Context, mailbox *Mailbox, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-mailbox.Chan():
			handle(env)
		}
	}
}

// DelayedSend enqueues payload to self after d elapses, without blocking
// the actor's own goroutine or using a timer wheel: a small helper
// goroutine waits on clk.After and then delivers once.
func DelayedSend(ctx context.Context, clk clock.Clock, d time.Duration, self PID, mailbox *Mailbox, payload any) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-clk.After(d):
		}
		mailbox.Deliver(Envelope{To: self, From: self, Payload: payload})
	}()
}
