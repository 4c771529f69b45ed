package tm

import (
	"sort"
	"time"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/paxos"
	"github.com/ringkv/paxoscommit/internal/tlog"
)

// Status is the tri-state promotion ladder every TxState moves through.
// Messages addressed to an entry that has not yet reached
// ok are appended to that entry's hold-back queue instead of being applied,
// and are replayed in FIFO order the moment the entry is promoted.
type Status string

const (
	StatusNew           Status = "new"
	StatusUninitialized Status = "uninitialized"
	StatusOK            Status = "ok"
)

// Decision is the three-valued outcome tracked at both the item and the
// transaction level. It flips away from Undecided at most once.
type Decision string

const (
	Undecided Decision = "undecided"
	Commit    Decision = "commit"
	Abort     Decision = "abort"
)

// RTMDescriptor identifies one TM/RTM replica slot for a transaction: its
// ring position, its role index (0 is the TM, 1..R-1 are standbys), and
// the PID its mailbox is reachable at.
type RTMDescriptor struct {
	RingKey   string
	Index     int
	PID       actor.PID
	Acceptor  actor.PID
	Resolved  bool
}

// ReplicaVote is one key-replica's worth of Paxos state within an item: a
// single TP's vote, durably accepted (or not yet) across the R TM/RTM
// copies of this transaction.
type ReplicaVote struct {
	KeyReplica string
	PaxosID    paxos.ID
	TP         actor.PID
	Registered bool
	Decision   Decision
}

// pending is one held-back message, replayed verbatim once its owning
// entry promotes to StatusOK.
type pending struct {
	apply func()
}

// ItemState is the TM/RTM's view of a single TLogEntry across all R
// replicas of its key.
type ItemState struct {
	ItemID   string
	TxID     string
	Entry    tlog.Entry
	Replicas []ReplicaVote

	NumPrepared int
	NumAbort    int
	Decision    Decision
}

func newItemState(txID, itemID string, entry tlog.Entry, keyReplicas []string) *ItemState {
	replicas := make([]ReplicaVote, len(keyReplicas))
	for i, kr := range keyReplicas {
		replicas[i] = ReplicaVote{
			KeyReplica: kr,
			PaxosID:    paxos.ID{TxID: txID, KeyReplica: kr},
			Decision:   Undecided,
		}
	}
	return &ItemState{
		ItemID:   itemID,
		TxID:     txID,
		Entry:    entry,
		Replicas: replicas,
		Decision: Undecided,
	}
}

func (it *ItemState) replicaIndex(keyReplica string) int {
	for i := range it.Replicas {
		if it.Replicas[i].KeyReplica == keyReplica {
			return i
		}
	}
	return -1
}

func (it *ItemState) quorum() int {
	return paxos.Quorum(len(it.Replicas))
}

// recount recomputes num_prepared/num_abort from the replica votes and
// decides the item once a quorum of replicas agree, honoring invariant I3:
// decision flips from undecided at most once.
func (it *ItemState) recount() {
	if it.Decision != Undecided {
		return
	}
	prepared, aborted := 0, 0
	for _, r := range it.Replicas {
		switch r.Decision {
		case Commit:
			prepared++
		case Abort:
			aborted++
		}
	}
	it.NumPrepared = prepared
	it.NumAbort = aborted
	q := it.quorum()
	switch {
	case prepared >= q:
		it.Decision = Commit
	case aborted >= q:
		it.Decision = Abort
	}
}

// TxState is the TM/RTM's per-transaction table entry: one row shared by
// the TM and every RTM replica of it, differing only in RoleIndex.
type TxState struct {
	TxID      string
	Client    actor.PID
	ClientsID string
	TMPid     actor.PID
	RTMs      []RTMDescriptor
	RoleIndex int

	Items map[string]*ItemState

	NumPrepared      int
	NumAbort         int
	NumPaxDecided    int
	NumTPsRegistered int
	NumInformed      int

	Decision Decision
	Status   Status
	HoldBack []pending

	CreatedAt time.Time
	ExpiresAt time.Time
	Informed  bool
	GCArmed   bool
}

func newTxState(txID, clientsID string, client actor.PID, tmPid actor.PID, rtms []RTMDescriptor, roleIndex int, now time.Time) *TxState {
	return &TxState{
		TxID:      txID,
		Client:    client,
		ClientsID: clientsID,
		TMPid:     tmPid,
		RTMs:      rtms,
		RoleIndex: roleIndex,
		Items:     make(map[string]*ItemState),
		Decision:  Undecided,
		Status:    StatusNew,
		CreatedAt: now,
	}
}

// recount re-evaluates the transaction decision: commit iff every item has
// decided commit, abort as soon as any item decides abort. Per I4 the
// verdict is only meaningful once every item has decided one way or the
// other, except for the abort short-circuit.
func (tx *TxState) recount() {
	if tx.Decision != Undecided {
		return
	}
	allCommit := len(tx.Items) > 0
	decided := 0
	for _, item := range tx.Items {
		switch item.Decision {
		case Abort:
			tx.Decision = Abort
			return
		case Commit:
			decided++
		default:
			allCommit = false
		}
	}
	if allCommit && decided == len(tx.Items) {
		tx.Decision = Commit
	}
}

func (tx *TxState) orderedItemIDs() []string {
	out := make([]string, 0, len(tx.Items))
	for id := range tx.Items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
