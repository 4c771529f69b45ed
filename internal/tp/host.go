package tp

import (
	"context"
	"fmt"
	"sync"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/tm"
	"github.com/ringkv/paxoscommit/internal/transport"
	"pkt.systems/pslog"
)

// Host fans incoming InitTP/TPCommitReply envelopes for one node's tp
// mailbox out to a fresh Participant per (tx_id, item_id): the actor-model
// rule that a TP's state belongs to exactly one transaction means the
// mailbox itself cannot be the unit of ownership, only the dispatcher is.
type Host struct {
	self    actor.PID
	replica Replica
	tport   transport.Transport
	logger  pslog.Logger
	mailbox *actor.Mailbox

	mu             sync.Mutex
	participants   map[string]*Participant
	pendingReplies map[string]tm.TPCommitReply
}

// NewHost constructs a Host bound to one node's replica store.
func NewHost(cfg Config, mailbox *actor.Mailbox) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Host{
		self:           cfg.Self,
		replica:        cfg.Replica,
		tport:          cfg.Transport,
		logger:         logger,
		mailbox:        mailbox,
		participants:   make(map[string]*Participant),
		pendingReplies: make(map[string]tm.TPCommitReply),
	}
}

// Run drains the host's mailbox until ctx is cancelled.
func (h *Host) Run(ctx context.Context) {
	actor.Run(ctx, h.mailbox, func(env actor.Envelope) {
		h.dispatch(ctx, env)
	})
}

func (h *Host) dispatch(ctx context.Context, env actor.Envelope) {
	switch msg := env.Payload.(type) {
	case tm.InitTP:
		key := participantKey(msg.TxID, msg.ItemID)
		p := New(Config{Self: h.self, Replica: h.replica, Transport: h.tport, Logger: h.logger})
		h.mu.Lock()
		h.participants[key] = p
		reply, pending := h.pendingReplies[key]
		delete(h.pendingReplies, key)
		h.mu.Unlock()
		p.HandleInitTP(ctx, msg)
		// A commit_reply addressed to this item can arrive on a different
		// channel before init_TP if a takeover RTM resolves and drains
		// first. Apply it now instead of leaving the lock held forever.
		if pending {
			h.mu.Lock()
			delete(h.participants, key)
			h.mu.Unlock()
			p.HandleCommitReply(reply)
		}
	case tm.TPCommitReply:
		key := participantKey(msg.TxID, msg.ItemID)
		h.mu.Lock()
		p, ok := h.participants[key]
		if ok {
			delete(h.participants, key)
		} else {
			h.pendingReplies[key] = msg
		}
		h.mu.Unlock()
		if !ok {
			return
		}
		p.HandleCommitReply(msg)
	default:
		h.logger.Warn("tp.host.unknown", "type", fmt.Sprintf("%T", msg))
	}
}

func participantKey(txID, itemID string) string {
	return txID + "/" + itemID
}
