package tm

import (
	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/paxos"
	"github.com/ringkv/paxoscommit/internal/tlog"
)

// InitRTM is tx_tm_rtm_init_RTM: the TM seeding one RTM with the full
// transaction and item state table at role_index Index.
type InitRTM struct {
	TxID      string
	ClientsID string
	Client    actor.PID
	TMPid     actor.PID
	RTMs      []RTMDescriptor
	RoleIndex int
	Items     []InitRTMItem
}

// InitRTMItem is one ItemState row carried inside InitRTM.
type InitRTMItem struct {
	ItemID      string
	Entry       tlog.Entry
	KeyReplicas []string
}

// InitTP is init_TP: the TM telling a key replica's TP to validate and vote
// on its rtlog, naming the full RTM set the TP must register its vote with.
type InitTP struct {
	TxID       string
	ItemID     string
	KeyReplica string
	PaxosID    paxos.ID
	RTLog      tlog.Entry
	TM         actor.PID
	RTMs       []actor.PID
}

// RegisterTP is register_TP: a TP announcing to one TM/RTM that it owns a
// given paxos_id and will be proposing a vote for it.
type RegisterTP struct {
	TxID       string
	ItemID     string
	KeyReplica string
	PaxosID    paxos.ID
	TP         actor.PID
}

// ProposeVote carries a TP's vote to one of the R TM/RTM acceptors hosting
// its paxos_id.
type ProposeVote struct {
	PaxosID paxos.ID
	Value   paxos.Value
	From    actor.PID
}

// AcceptedBroadcast is forwarded by the acceptor that just granted a vote to
// every sibling TM/RTM so their learners converge on the same tally.
type AcceptedBroadcast struct {
	PaxosID paxos.ID
	Value   paxos.Value
	From    actor.PID
}

// CommitReply is tx_tm_rtm_commit_reply, sent once to the originating
// client with the transaction's final verdict.
type CommitReply struct {
	ClientsID string
	Decision  Decision
}

// TPCommitReply is the per-item commit_reply a TP is waiting on before it
// releases its tentative lock.
type TPCommitReply struct {
	TxID     string
	ItemID   string
	Decision Decision
}

// Delete is tx_tm_rtm_delete: broadcast after a transaction has fully
// drained, telling every RTM (and eventually the local Paxos bookkeeping)
// to forget it.
type Delete struct {
	TxID     string
	Decision Decision
}

// ProposeYourself is tx_tm_rtm_propose_yourself: an RTM, suspecting the TM
// dead, announcing it is taking over.
type ProposeYourself struct {
	TxID      string
	RoleIndex int
	From      actor.PID
}

// TidIsDone arms the delayed timeout that forces a transaction to a verdict
// if it has not finished draining by ~2x tx_timeout after it started.
type TidIsDone struct {
	TxID string
}

// Crash is the {crash, pid} / {crash, pid, cookie} notification the failure
// detector raises when a subscribed peer is suspected dead.
type Crash struct {
	Pid    string
	Cookie string
}

// GetRTM is {get_rtm, reply_to, ring_key, role_name}: a lookup used during
// RTM membership rediscovery to find the replica currently owning ring_key
// in role_name.
type GetRTM struct {
	ReplyTo  actor.PID
	RingKey  string
	RoleName string
}

// GetRTMReply answers GetRTM with the resolved PID, if any.
type GetRTMReply struct {
	RingKey  string
	PID      actor.PID
	Acceptor actor.PID
	Found    bool
}
