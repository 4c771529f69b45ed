// Package tm implements the TM/RTM commit core: the actor that turns a
// client's frozen TLog into a replicated, Paxos-protected decision and
// drains it back out to every participant exactly once.
package tm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/clock"
	"github.com/ringkv/paxoscommit/internal/dht"
	"github.com/ringkv/paxoscommit/internal/fd"
	"github.com/ringkv/paxoscommit/internal/paxos"
	"github.com/ringkv/paxoscommit/internal/tlog"
	"github.com/ringkv/paxoscommit/internal/transport"
	"pkt.systems/pslog"
)

// MinRTMs is the default floor on known TM/RTM replicas (this TM included)
// below which Commit refuses new commits with an error. The refused request
// is not forwarded to another TM.
const MinRTMs = 3

// Config wires a Manager to its node's identity, its collaborators, and the
// config surface named by the commit core: replication factor, transaction
// timeout, the RTM rediscovery interval, and the MinRTMs floor. The quorum
// is not configurable; it is always paxos.Quorum of the replication factor.
type Config struct {
	Self               actor.PID
	ReplicationFactor  int
	TxTimeout          time.Duration
	RTMUpdateInterval  time.Duration
	MinRTMs            int
	Transport          transport.Transport
	Router             dht.Router
	Replicas           dht.ReplicaKeys
	Detector           *fd.Detector
	Clock              clock.Clock
	Logger             pslog.Logger
	Registerer         prometheus.Registerer
}

// Manager is the TM/RTM role co-located on one node. A single Manager
// instance serves every transaction this node is TM or RTM for; per-
// transaction state lives in TxState/ItemState entries keyed by tx_id, not
// in separate goroutines, matching the single-threaded actor-model rule
// that a mailbox run loop is the only writer of an actor's private state.
type Manager struct {
	cfg      Config
	self     actor.PID
	r        int
	minRTMs  int
	clk      clock.Clock
	logger   pslog.Logger
	tport    transport.Transport
	detector *fd.Detector

	acceptor *paxos.Acceptor
	learner  *paxos.Learner

	mailbox *actor.Mailbox

	mu      sync.Mutex
	txs     map[string]*TxState
	orphans map[string][]func()

	metrics metrics

	knownRTMs map[string]struct{}
}

type metrics struct {
	committed   prometheus.Counter
	aborted     prometheus.Counter
	takeovers   prometheus.Counter
	active      prometheus.Gauge
	decisionDur prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, node string) metrics {
	labels := prometheus.Labels{"node": node}
	m := metrics{
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paxoscommit", Subsystem: "tm", Name: "transactions_committed_total",
			Help: "Transactions decided commit.", ConstLabels: labels,
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paxoscommit", Subsystem: "tm", Name: "transactions_aborted_total",
			Help: "Transactions decided abort.", ConstLabels: labels,
		}),
		takeovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paxoscommit", Subsystem: "tm", Name: "takeovers_total",
			Help: "RTM takeovers initiated by this node.", ConstLabels: labels,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "paxoscommit", Subsystem: "tm", Name: "transactions_active",
			Help: "Transactions currently tracked by this TM/RTM.", ConstLabels: labels,
		}),
		decisionDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "paxoscommit", Subsystem: "tm", Name: "decision_seconds",
			Help: "Time from commit request to decision.", ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.committed, m.aborted, m.takeovers, m.active, m.decisionDur)
	}
	return m
}

// New constructs a Manager for one node. mailbox is the node's TM/RTM role
// mailbox, already registered with cfg.Transport under cfg.Self.
func New(cfg Config, mailbox *actor.Mailbox) *Manager {
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 3
	}
	if cfg.MinRTMs <= 0 {
		cfg.MinRTMs = MinRTMs
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 30 * time.Second
	}
	if cfg.RTMUpdateInterval <= 0 {
		cfg.RTMUpdateInterval = 5 * time.Second
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Manager{
		cfg:       cfg,
		self:      cfg.Self,
		r:         cfg.ReplicationFactor,
		minRTMs:   cfg.MinRTMs,
		clk:       clk,
		logger:    logger,
		tport:     cfg.Transport,
		detector:  cfg.Detector,
		acceptor:  paxos.NewAcceptor(logger),
		learner:   paxos.NewLearner(),
		mailbox:   mailbox,
		txs:       make(map[string]*TxState),
		orphans:   make(map[string][]func()),
		metrics:   newMetrics(cfg.Registerer, fmt.Sprintf("%s/%s", cfg.Self.Node, cfg.Self.Role)),
		knownRTMs: make(map[string]struct{}),
	}
}

// Run drains the Manager's mailbox until ctx is cancelled. Call it in its
// own goroutine once per Manager.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mailbox, func(env actor.Envelope) {
		m.dispatch(ctx, env)
	})
}

func (m *Manager) dispatch(ctx context.Context, env actor.Envelope) {
	switch msg := env.Payload.(type) {
	case InitRTM:
		m.handleInitRTM(ctx, msg)
	case RegisterTP:
		m.holdOrRun(msg.TxID, func() { m.applyRegisterTP(msg) })
	case ProposeVote:
		m.holdOrRun(msg.PaxosID.TxID, func() { m.applyProposeVote(msg) })
	case AcceptedBroadcast:
		m.holdOrRun(msg.PaxosID.TxID, func() { m.applyAcceptedBroadcast(msg) })
	case TPCommitReply:
		// TPs own their lock release; the TM/RTM does not act on this
		// beyond what the TP's own InitTP flow already drives. Present so
		// RTMs observing the wire traffic do not treat it as unknown.
	case Delete:
		m.holdOrRun(msg.TxID, func() { m.applyDelete(msg) })
	case ProposeYourself:
		m.holdOrRun(msg.TxID, func() { m.applyProposeYourself(ctx, msg) })
	case TidIsDone:
		m.holdOrRun(msg.TxID, func() { m.applyTidIsDone(msg) })
	case Crash:
		m.handleCrash(ctx, msg)
	case GetRTM:
		m.handleGetRTM(msg)
	default:
		m.logger.Warn("tm.dispatch.unknown", "type", fmt.Sprintf("%T", msg))
	}
}

// holdOrRun is the hold-back gate every message addressed by tx_id passes
// through: fn runs immediately if the transaction is already known and
// past StatusUninitialized, otherwise it is queued and replayed in FIFO
// order by promoteTx once the transaction reaches StatusOK. This tolerates
// the reordering spec'd across channels: init_RTM and a TP's register_TP/
// propose_vote/accepted traffic can race, since they travel over different
// senders with no cross-channel ordering guarantee.
func (m *Manager) holdOrRun(txID string, fn func()) {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	if !ok {
		m.orphans[txID] = append(m.orphans[txID], fn)
		m.mu.Unlock()
		return
	}
	if tx.Status != StatusOK {
		tx.HoldBack = append(tx.HoldBack, pending{apply: fn})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// promoteTx marks tx ready and replays everything held back for it: first
// whatever arrived before the transaction itself was known (m.orphans),
// then whatever arrived after tx existed but before its own setup
// finished (tx.HoldBack). Both drain outside the lock so a replayed
// handler is free to take it again.
func (m *Manager) promoteTx(tx *TxState) {
	m.mu.Lock()
	tx.Status = StatusOK
	orphaned := m.orphans[tx.TxID]
	delete(m.orphans, tx.TxID)
	held := tx.HoldBack
	tx.HoldBack = nil
	m.mu.Unlock()
	for _, fn := range orphaned {
		fn()
	}
	for _, p := range held {
		p.apply()
	}
}

// Commit is the public commit(TLog) operation: a client handing its frozen
// log to its local TM. It builds the transaction's TxState and ItemState
// table, arms the RTMs and TPs, and returns immediately; the eventual
// verdict is delivered to client via a CommitReply envelope.
func (m *Manager) Commit(ctx context.Context, txID, clientsID string, client actor.PID, entries []tlog.Entry, rtms []RTMDescriptor) error {
	if len(rtms) < m.minRTMs-1 {
		return fmt.Errorf("tm: only %d RTMs known, need %d: refusing commit, act as initialization handler", len(rtms), m.minRTMs-1)
	}
	full := append([]RTMDescriptor{{RingKey: m.self.Node, Index: 0, PID: m.self, Resolved: true}}, rtms...)

	now := m.clk.Now()
	tx := newTxState(txID, clientsID, client, m.self, full, 0, now)
	tx.ExpiresAt = now.Add(2 * m.cfg.TxTimeout)

	for i, e := range entries {
		itemID := fmt.Sprintf("%s/%d", txID, i)
		keyReplicas := m.replicasFor(e.Key)
		item := newItemState(txID, itemID, e, keyReplicas)
		tx.Items[itemID] = item
	}

	m.mu.Lock()
	m.txs[txID] = tx
	m.mu.Unlock()
	m.metrics.active.Inc()

	m.seedLearner(tx)
	m.promoteTx(tx)
	m.broadcastInitRTM(tx)
	m.fanoutInitTP(tx)
	m.armTidIsDone(ctx, tx)
	m.watchRTMs(ctx, tx)
	return nil
}

// seedLearner registers every item's paxos ids with the learner so
// ProposeVote/AcceptedBroadcast deliveries that race ahead of this call are
// simply counted once they arrive; TM and RTM both call this right after
// building their copy of a transaction's item table.
func (m *Manager) seedLearner(tx *TxState) {
	for _, item := range tx.Items {
		for _, rv := range item.Replicas {
			m.learner.Seed(rv.PaxosID, paxos.Quorum(m.r))
			m.learner.Subscribe(rv.PaxosID, m.onPaxosDecided)
		}
	}
}

func (m *Manager) replicasFor(key string) []string {
	if m.cfg.Replicas != nil {
		if rs := m.cfg.Replicas.ReplicaKeys(key, m.r); len(rs) > 0 {
			return rs
		}
	}
	out := make([]string, m.r)
	for i := range out {
		out[i] = fmt.Sprintf("%s#%d", key, i)
	}
	return out
}

func (m *Manager) broadcastInitRTM(tx *TxState) {
	items := make([]InitRTMItem, 0, len(tx.Items))
	for _, id := range tx.orderedItemIDs() {
		item := tx.Items[id]
		keyReplicas := make([]string, len(item.Replicas))
		for i, rv := range item.Replicas {
			keyReplicas[i] = rv.KeyReplica
		}
		items = append(items, InitRTMItem{ItemID: item.ItemID, Entry: item.Entry, KeyReplicas: keyReplicas})
	}
	for _, rtm := range tx.RTMs {
		if rtm.Index == 0 || !rtm.Resolved {
			continue
		}
		m.tport.Send(rtm.PID, m.self, InitRTM{
			TxID: tx.TxID, ClientsID: tx.ClientsID, Client: tx.Client, TMPid: tx.TMPid,
			RTMs: tx.RTMs, RoleIndex: rtm.Index, Items: items,
		})
	}
}

func (m *Manager) fanoutInitTP(tx *TxState) {
	rtmPids := make([]actor.PID, 0, len(tx.RTMs))
	for _, rtm := range tx.RTMs {
		rtmPids = append(rtmPids, rtm.PID)
	}
	for _, item := range tx.Items {
		for _, rv := range item.Replicas {
			tpPid, err := m.resolveTP(rv.KeyReplica)
			if err != nil {
				m.logger.Warn("tm.fanout.unresolved_tp", "tx_id", tx.TxID, "key_replica", rv.KeyReplica, "err", err.Error())
				continue
			}
			m.tport.Send(tpPid, m.self, InitTP{
				TxID: tx.TxID, ItemID: item.ItemID, KeyReplica: rv.KeyReplica,
				PaxosID: rv.PaxosID, RTLog: item.Entry, TM: m.self, RTMs: rtmPids,
			})
		}
	}
}

func (m *Manager) resolveTP(keyReplica string) (actor.PID, error) {
	if m.cfg.Router == nil {
		return actor.PID{}, fmt.Errorf("tm: no router configured")
	}
	node, err := m.cfg.Router.Route(keyReplica)
	if err != nil {
		return actor.PID{}, err
	}
	return actor.PID{Node: string(node), Role: "tp"}, nil
}

func (m *Manager) armTidIsDone(ctx context.Context, tx *TxState) {
	actor.DelayedSend(ctx, m.clk, 2*m.cfg.TxTimeout, m.self, m.mailbox, TidIsDone{TxID: tx.TxID})
}

func (m *Manager) watchRTMs(ctx context.Context, tx *TxState) {
	if m.detector == nil {
		return
	}
	for _, rtm := range tx.RTMs {
		if rtm.Index != 0 || rtm.PID == m.self {
			continue
		}
		sub := m.detector.Subscribe(ctx, fd.Pid(rtm.PID.Node))
		go m.watchTM(ctx, tx.TxID, sub)
	}
}

func (m *Manager) watchTM(ctx context.Context, txID string, sub *fd.Subscription) {
	select {
	case <-ctx.Done():
		sub.Cancel()
	case _, ok := <-sub.Events():
		if !ok {
			return
		}
		m.mailbox.Deliver(actor.Envelope{To: m.self, From: m.self, Payload: ProposeYourself{TxID: txID, From: m.self}})
		sub.Cancel()
	}
}

// handleInitRTM is an RTM receiving its seed from the TM: tx_tm_rtm_init_RTM.
func (m *Manager) handleInitRTM(ctx context.Context, msg InitRTM) {
	m.mu.Lock()
	_, exists := m.txs[msg.TxID]
	m.mu.Unlock()
	if exists {
		return
	}
	now := m.clk.Now()
	tx := newTxState(msg.TxID, msg.ClientsID, msg.Client, msg.TMPid, msg.RTMs, msg.RoleIndex, now)
	tx.ExpiresAt = now.Add(2 * m.cfg.TxTimeout)
	for _, it := range msg.Items {
		item := newItemState(msg.TxID, it.ItemID, it.Entry, it.KeyReplicas)
		tx.Items[it.ItemID] = item
	}

	m.mu.Lock()
	m.txs[msg.TxID] = tx
	m.mu.Unlock()
	m.metrics.active.Inc()

	m.seedLearner(tx)
	m.promoteTx(tx)
	m.armTidIsDone(ctx, tx)
	if tmNode := tx.TMPid; tmNode != (actor.PID{}) && tmNode != m.self && m.detector != nil {
		sub := m.detector.Subscribe(ctx, fd.Pid(tmNode.Node))
		go m.watchTM(ctx, tx.TxID, sub)
	}
}

// applyRegisterTP is register_TP: a TP announcing it owns a paxos_id and
// will be voting on it. Held back by holdOrRun until the transaction this
// paxos_id belongs to is known and past its own InitRTM/Commit setup, so
// the learner is always seeded exactly once, by seedLearner, before any
// vote traffic for it is processed.
func (m *Manager) applyRegisterTP(msg RegisterTP) {
	m.mu.Lock()
	tx, ok := m.txs[msg.TxID]
	m.mu.Unlock()
	if !ok {
		return
	}
	item, ok := tx.Items[msg.ItemID]
	if !ok {
		return
	}
	idx := item.replicaIndex(msg.KeyReplica)
	if idx < 0 {
		return
	}
	item.Replicas[idx].TP = msg.TP
	item.Replicas[idx].Registered = true
}

// applyProposeVote is a TP pushing its vote to one of the R acceptors
// backing its paxos_id. Contention-free (the common case), this always
// grants at round 1; a takeover that already promised a higher round will
// reject it, which is safe because the takeover's own Propose call adopts
// whatever this acceptor may have already accepted.
func (m *Manager) applyProposeVote(msg ProposeVote) {
	accepted := m.acceptor.Accept(msg.PaxosID, 1, msg.Value, string(m.self.Node))
	if !accepted.Granted {
		return
	}
	m.learner.Notify(msg.PaxosID, string(m.self.Node), msg.Value)
	m.broadcastAccepted(msg.PaxosID, msg.Value)
}

func (m *Manager) broadcastAccepted(id paxos.ID, value paxos.Value) {
	m.mu.Lock()
	tx, ok := m.txs[id.TxID]
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, rtm := range tx.RTMs {
		if rtm.PID == m.self {
			continue
		}
		m.tport.Send(rtm.PID, m.self, AcceptedBroadcast{PaxosID: id, Value: value, From: m.self})
	}
}

func (m *Manager) applyAcceptedBroadcast(msg AcceptedBroadcast) {
	m.learner.Notify(msg.PaxosID, string(msg.From.Node), msg.Value)
}

// onPaxosDecided is the Learner callback invoked exactly once per paxos_id.
// It records the replica's vote on its item, re-evaluates the item and then
// the transaction, and drains to a verdict the first time the transaction
// itself decides.
func (m *Manager) onPaxosDecided(id paxos.ID, value paxos.Value) {
	m.mu.Lock()
	tx, ok := m.txs[id.TxID]
	m.mu.Unlock()
	if !ok {
		return
	}
	var decidedTx bool
	for _, item := range tx.Items {
		idx := item.replicaIndex(id.KeyReplica)
		if idx < 0 {
			continue
		}
		item.Replicas[idx].Decision = valueToDecision(value)
		item.recount()
		if item.Decision != Undecided {
			wasUndecided := tx.Decision == Undecided
			tx.recount()
			if wasUndecided && tx.Decision != Undecided {
				decidedTx = true
			}
		}
		break
	}
	if decidedTx {
		m.drain(tx)
	}
}

func valueToDecision(v paxos.Value) Decision {
	if v == paxos.Prepared {
		return Commit
	}
	return Abort
}

func decisionToValue(d Decision) paxos.Value {
	if d == Commit {
		return paxos.Prepared
	}
	return paxos.Abort
}

// drain runs the gc_after_drain sequence: inform every TP, inform the
// client exactly once, broadcast the decision to the RTMs, and arm the
// delayed forget that discards TxState/ItemState once every RTM has had a
// chance to observe the decision.
func (m *Manager) drain(tx *TxState) {
	if tx.Decision == Commit {
		m.metrics.committed.Inc()
	} else {
		m.metrics.aborted.Inc()
	}
	m.informTPs(tx)
	m.informClient(tx)
	m.informRTMs(tx)
	m.gcAfterDrain(tx)
}

func (m *Manager) informTPs(tx *TxState) {
	for _, item := range tx.Items {
		for _, rv := range item.Replicas {
			if !rv.Registered || rv.TP == (actor.PID{}) {
				continue
			}
			m.tport.Send(rv.TP, m.self, TPCommitReply{TxID: tx.TxID, ItemID: item.ItemID, Decision: tx.Decision})
		}
	}
}

func (m *Manager) informClient(tx *TxState) {
	if tx.Informed {
		return
	}
	tx.Informed = true
	if tx.Client == (actor.PID{}) {
		return
	}
	m.tport.Send(tx.Client, m.self, CommitReply{ClientsID: tx.ClientsID, Decision: tx.Decision})
}

func (m *Manager) informRTMs(tx *TxState) {
	for _, rtm := range tx.RTMs {
		if rtm.PID == m.self {
			continue
		}
		m.tport.Send(rtm.PID, m.self, Delete{TxID: tx.TxID, Decision: tx.Decision})
	}
}

func (m *Manager) gcAfterDrain(tx *TxState) {
	if tx.GCArmed {
		return
	}
	tx.GCArmed = true
	actor.DelayedSend(context.Background(), m.clk, time.Second, m.self, m.mailbox, Delete{TxID: tx.TxID, Decision: tx.Decision})
}

func (m *Manager) applyDelete(msg Delete) {
	m.mu.Lock()
	tx, ok := m.txs[msg.TxID]
	if ok {
		delete(m.txs, msg.TxID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if tx.Decision == Undecided {
		tx.Decision = msg.Decision
		m.drain(tx)
	}
	for _, item := range tx.Items {
		for _, rv := range item.Replicas {
			m.acceptor.Forget(rv.PaxosID)
			m.learner.Forget(rv.PaxosID)
		}
	}
	m.metrics.active.Dec()
}

// applyProposeYourself is an RTM announcing a takeover. Every RTM,
// including the proposer itself, re-seeds its local Paxos round at its own
// role index and re-drives the still-undecided paxos ids toward abort: the
// first value a majority of acceptors durably accepted (commit or abort)
// always wins over a later takeover's preferred abort, so this is safe
// regardless of how many takeovers race.
func (m *Manager) applyProposeYourself(ctx context.Context, msg ProposeYourself) {
	m.mu.Lock()
	tx, ok := m.txs[msg.TxID]
	m.mu.Unlock()
	if !ok || tx.Decision != Undecided {
		return
	}
	m.metrics.takeovers.Inc()
	tx.TMPid = msg.From
	proposer := paxos.NewProposer(string(m.self.Node), uint64(tx.RoleIndex))
	for _, item := range tx.Items {
		for i, rv := range item.Replicas {
			if rv.Decision != Undecided {
				continue
			}
			local := &localAcceptorClient{acceptor: m.acceptor}
			accepted, err := proposer.Propose(local, rv.PaxosID, uint64(tx.RoleIndex)+1, paxos.Abort)
			if err != nil {
				continue
			}
			m.learner.Notify(rv.PaxosID, string(m.self.Node), accepted.Value)
			m.broadcastAccepted(rv.PaxosID, accepted.Value)
			item.Replicas[i] = rv
		}
	}
	m.rearmTidIsDone(ctx, tx)
}

func (m *Manager) rearmTidIsDone(ctx context.Context, tx *TxState) {
	actor.DelayedSend(ctx, m.clk, m.cfg.TxTimeout, m.self, m.mailbox, TidIsDone{TxID: tx.TxID})
}

// localAcceptorClient lets a takeover's Proposer drive this node's own
// Acceptor directly, used when the node running the takeover is itself one
// of the R acceptors for the paxos_id in question.
type localAcceptorClient struct {
	acceptor *paxos.Acceptor
}

func (l *localAcceptorClient) Prepare(id paxos.ID, round uint64) paxos.Promise {
	return l.acceptor.Prepare(id, round)
}

func (l *localAcceptorClient) Accept(id paxos.ID, round uint64, value paxos.Value, from string) paxos.Accepted {
	return l.acceptor.Accept(id, round, value, from)
}

// applyTidIsDone forces an undecided transaction to abort once it has run
// for ~2x tx_timeout without draining, matching the takeover_abort branch:
// a transaction this stale is assumed to have lost its TM for good.
func (m *Manager) applyTidIsDone(msg TidIsDone) {
	m.mu.Lock()
	tx, ok := m.txs[msg.TxID]
	m.mu.Unlock()
	if !ok || tx.Decision != Undecided {
		return
	}
	tx.Decision = Abort
	m.drain(tx)
}

// handleCrash reacts to a failure-detector event for a peer this node is
// tracking on behalf of one or more transactions, triggering takeover for
// each transaction whose TM is the crashed peer.
func (m *Manager) handleCrash(ctx context.Context, msg Crash) {
	m.mu.Lock()
	var affected []*TxState
	for _, tx := range m.txs {
		if tx.TMPid.Node == msg.Pid && tx.Decision == Undecided {
			affected = append(affected, tx)
		}
	}
	m.mu.Unlock()
	for _, tx := range affected {
		m.applyProposeYourself(ctx, ProposeYourself{TxID: tx.TxID, RoleIndex: tx.RoleIndex, From: m.self})
	}
}

// handleGetRTM answers an RTM-membership lookup for ring_key/role_name. In
// this module the answer is always this node's own mailbox, since the
// binding between a ring position and its live RTM set is owned by the
// node itself rather than by an external directory service (out of scope).
func (m *Manager) handleGetRTM(msg GetRTM) {
	reply := GetRTMReply{RingKey: msg.RingKey, PID: m.self, Found: true}
	m.tport.Send(msg.ReplyTo, m.self, reply)
	m.knownRTMs[msg.RingKey] = struct{}{}
}

// Takeover is the public takeover(tx_id) operation an operator or a
// higher-level supervisor can invoke directly, independent of the failure
// detector raising a Crash event.
func (m *Manager) Takeover(ctx context.Context, txID string) error {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("tm: unknown transaction %q", txID)
	}
	m.applyProposeYourself(ctx, ProposeYourself{TxID: tx.TxID, RoleIndex: tx.RoleIndex, From: m.self})
	return nil
}

// ActiveCount reports how many transactions this Manager currently tracks.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}
