package store

import (
	"context"
	"fmt"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/transport"
	"pkt.systems/pslog"
)

// Host exposes one node's Store to the rest of the ring over the actor
// transport: a ReadRequest/WriteRequest in, a ReadResponse/WriteResponse
// back to the sender's own mailbox. This is the remote-accessible half of
// Store; the tp.Replica half is accessed in-process by this node's own
// Participants.
type Host struct {
	self    actor.PID
	store   *Store
	tport   transport.Transport
	logger  pslog.Logger
	mailbox *actor.Mailbox
}

// NewHost constructs a Host bound to store, reachable at self over tport.
func NewHost(self actor.PID, store *Store, tport transport.Transport, logger pslog.Logger, mailbox *actor.Mailbox) *Host {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Host{self: self, store: store, tport: tport, logger: logger, mailbox: mailbox}
}

// Run drains the host's mailbox until ctx is cancelled.
func (h *Host) Run(ctx context.Context) {
	actor.Run(ctx, h.mailbox, func(env actor.Envelope) {
		h.dispatch(env)
	})
}

func (h *Host) dispatch(env actor.Envelope) {
	switch msg := env.Payload.(type) {
	case ReadRequest:
		value, version, found := h.store.Get(msg.Key)
		h.tport.Send(msg.ReplyTo, h.self, ReadResponse{Key: msg.Key, Value: value, Version: version, Found: found})
	case WriteRequest:
		h.store.Apply(msg.Key, msg.Value, msg.Version)
		h.tport.Send(msg.ReplyTo, h.self, WriteResponse{Key: msg.Key, OK: true})
	default:
		h.logger.Warn("store.host.unknown", "type", fmt.Sprintf("%T", msg))
	}
}
