// Package tp implements the Transaction Participant actor: the role that
// owns exactly one key replica's tentative lock for the lifetime of one
// transaction, validates the TM's proposed rtlog against that replica,
// sends its vote as a ProposeVote message to every TM/RTM acceptor, and
// releases (or applies and releases) on the TM's commit_reply.
package tp

import (
	"context"
	"sync"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/paxos"
	"github.com/ringkv/paxoscommit/internal/tlog"
	"github.com/ringkv/paxoscommit/internal/tm"
	"github.com/ringkv/paxoscommit/internal/transport"
	"pkt.systems/pslog"
)

// Replica is the local key-value replica a Participant validates and locks
// against. It is the out-of-scope storage engine's contract from this
// module's point of view: whatever backs it owns durability and anti-
// entropy, neither of which this package touches.
type Replica interface {
	// Version returns the currently stored version for key.
	Version(key string) (version uint64, found bool)
	// TryLock takes the tentative lock a prepared write or read needs:
	// write acquires exclusive, read increments a shared counter. It
	// returns false if a conflicting lock is already held.
	TryLock(key string, write bool) bool
	// Unlock releases a lock taken by TryLock. Safe to call more than
	// once for the same (key, write) pair; the second call is a no-op,
	// which is what makes TP's lock release idempotent against
	// commit_reply arriving before init_TP finishes registering.
	Unlock(key string, write bool)
	// Apply commits value at key once a write item has decided commit.
	Apply(key string, value []byte, version uint64)
}

// Participant is the per-(tx_id, key_replica) actor state. One Participant
// instance is created per InitTP received; it is not shared across
// transactions, matching the rule that a TP's lock ownership is exclusive
// to the transaction that took it.
type Participant struct {
	self     actor.PID
	replica  Replica
	tport    transport.Transport
	proposer *paxos.Proposer
	logger   pslog.Logger

	mu        sync.Mutex
	locked    bool
	write     bool
	key       string
	released  bool
	voteValue paxos.Value
	entry     tlog.Entry
}

// Config wires a Participant's node identity and collaborators.
type Config struct {
	Self      actor.PID
	Replica   Replica
	Transport transport.Transport
	Logger    pslog.Logger
}

// New constructs a Participant ready to handle one InitTP message.
func New(cfg Config) *Participant {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Participant{
		self:     cfg.Self,
		replica:  cfg.Replica,
		tport:    cfg.Transport,
		proposer: paxos.NewProposer(string(cfg.Self.Node), 0),
		logger:   logger,
	}
}

// HandleInitTP runs the full TP flow for one key replica: validate, lock,
// register with every RTM, and propose the resulting vote to every one of
// the R TM/RTM acceptors backing the paxos_id.
func (p *Participant) HandleInitTP(_ context.Context, msg tm.InitTP) {
	value := p.validateAndLock(msg.RTLog)
	p.mu.Lock()
	p.key = msg.RTLog.Key
	p.write = msg.RTLog.Op == tlog.OpWrite
	p.voteValue = value
	p.entry = msg.RTLog
	p.mu.Unlock()

	registration := tm.RegisterTP{
		TxID: msg.TxID, ItemID: msg.ItemID, KeyReplica: msg.KeyReplica,
		PaxosID: msg.PaxosID, TP: p.self,
	}
	for _, rtm := range msg.RTMs {
		p.tport.Send(rtm, p.self, registration)
	}

	vote := tm.ProposeVote{PaxosID: msg.PaxosID, Value: value, From: p.self}
	for _, rtm := range msg.RTMs {
		p.tport.Send(rtm, p.self, vote)
	}
}

// validateAndLock implements the item-level state machine's only non-
// trivial edge: a write entry is preparable iff the stored version matches
// version_read and no write lock is already held; a read entry is
// preparable iff the stored version matches version_read, regardless of any
// read lock already outstanding.
func (p *Participant) validateAndLock(entry tlog.Entry) paxos.Value {
	current, found := p.replica.Version(entry.Key)
	if !found || current != entry.VersionRead {
		return paxos.Abort
	}
	write := entry.Op == tlog.OpWrite
	if !p.replica.TryLock(entry.Key, write) {
		return paxos.Abort
	}
	p.mu.Lock()
	p.locked = true
	p.mu.Unlock()
	return paxos.Prepared
}

// HandleCommitReply is the TM/RTM's final word on this transaction. Lock
// release is idempotent: if HandleCommitReply already ran (because the
// decision arrived before registration finished, an explicit edge case the
// item-level protocol must tolerate), a second delivery of the same
// decision is a no-op.
func (p *Participant) HandleCommitReply(msg tm.TPCommitReply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	if !p.locked {
		return
	}
	if msg.Decision == tm.Commit && p.write {
		p.replica.Apply(p.key, p.entry.Value, p.entry.VersionRead+1)
	}
	p.replica.Unlock(p.key, p.write)
	p.locked = false
}
