// Package fd implements the failure detector every takeover decision in
// this module is built on: a subscribable liveness oracle that emits a
// crash event once a watched peer stops heartbeating. Subscriptions are
// refcounted so unrelated transactions can watch the same peer without
// racing each other's unsubscribe.
package fd

import (
	"context"
	"sync"
	"time"

	"github.com/ringkv/paxoscommit/internal/clock"
	"pkt.systems/pslog"
)

// Pid is the opaque peer identity the detector tracks liveness for. It is
// whatever the caller's routing layer uses to address a node or role.
type Pid string

// Event is delivered to subscribers when a watched peer is suspected dead.
type Event struct {
	Pid    Pid
	Cookie string
}

// Prober issues the actual liveness check (a ping, a heartbeat read, a
// socket probe); the transport it runs over is out of scope for this
// module. Prober.Ping returning an error means the peer did not answer
// within the prober's own timeout.
type Prober interface {
	Ping(ctx context.Context, pid Pid) error
}

// Detector tracks subscriptions and liveness for a set of peers. One
// Detector instance is shared by every role co-located on a node; each
// role subscribes to exactly the peers its in-flight work depends on.
type Detector struct {
	prober   Prober
	clock    clock.Clock
	logger   pslog.Logger
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	refs      map[Pid]int
	suspected map[Pid]bool
	watchers  map[Pid]map[int]chan Event
	nextToken int
}

// Config configures a Detector.
type Config struct {
	Prober   Prober
	Clock    clock.Clock
	Logger   pslog.Logger
	Interval time.Duration
	Timeout  time.Duration
}

// New constructs a Detector. Interval defaults to one second, Timeout to
// three intervals, matching the teacher's lease-manager ratio between
// renewal period and TTL.
func New(cfg Config) *Detector {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * interval
	}
	return &Detector{
		prober:    cfg.Prober,
		clock:     clk,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
		refs:      make(map[Pid]int),
		suspected: make(map[Pid]bool),
		watchers:  make(map[Pid]map[int]chan Event),
	}
}

// Subscription is a handle returned by Subscribe. Cancel unsubscribes.
type Subscription struct {
	pid   Pid
	token int
	ch    chan Event
	d     *Detector
}

// Events returns the channel crash notifications for this subscription
// arrive on. The channel is closed when Cancel is called.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Cancel unsubscribes. The peer's probe loop stops once its last
// subscriber cancels (the 1→0 transition), matching the reference-counted
// design: unrelated transactions watching the same peer never race each
// other's teardown.
func (s *Subscription) Cancel() {
	s.d.unsubscribe(s.pid, s.token)
}

// Subscribe starts (or joins) liveness monitoring of pid and returns a
// handle the caller reads crash events from.
func (d *Detector) Subscribe(ctx context.Context, pid Pid) *Subscription {
	d.mu.Lock()
	d.refs[pid]++
	firstSubscriber := d.refs[pid] == 1
	token := d.nextToken
	d.nextToken++
	ch := make(chan Event, 1)
	if d.watchers[pid] == nil {
		d.watchers[pid] = make(map[int]chan Event)
	}
	d.watchers[pid][token] = ch
	d.mu.Unlock()

	if firstSubscriber {
		go d.monitor(ctx, pid)
	}
	return &Subscription{pid: pid, token: token, ch: ch, d: d}
}

func (d *Detector) unsubscribe(pid Pid, token int) {
	d.mu.Lock()
	if watchers, ok := d.watchers[pid]; ok {
		if ch, ok := watchers[token]; ok {
			close(ch)
			delete(watchers, token)
		}
		if len(watchers) == 0 {
			delete(d.watchers, pid)
		}
	}
	if d.refs[pid] > 0 {
		d.refs[pid]--
	}
	last := d.refs[pid] <= 0
	if last {
		delete(d.refs, pid)
		delete(d.suspected, pid)
	}
	d.mu.Unlock()
}

// IsSuspected reports whether pid is currently believed crashed.
func (d *Detector) IsSuspected(pid Pid) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspected[pid]
}

func (d *Detector) monitor(ctx context.Context, pid Pid) {
	for {
		if !d.stillWatched(pid) {
			return
		}
		probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.probe(probeCtx, pid)
		cancel()
		if err != nil {
			d.suspect(pid)
		} else {
			d.clearSuspicion(pid)
		}
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(d.interval):
		}
	}
}

func (d *Detector) probe(ctx context.Context, pid Pid) error {
	if d.prober == nil {
		return nil
	}
	return d.prober.Ping(ctx, pid)
}

func (d *Detector) stillWatched(pid Pid) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs[pid] > 0
}

func (d *Detector) suspect(pid Pid) {
	d.mu.Lock()
	if d.suspected[pid] {
		d.mu.Unlock()
		return
	}
	d.suspected[pid] = true
	channels := make([]chan Event, 0, len(d.watchers[pid]))
	for _, ch := range d.watchers[pid] {
		channels = append(channels, ch)
	}
	d.mu.Unlock()
	if d.logger != nil {
		d.logger.Warn("fd.suspect", "pid", string(pid))
	}
	for _, ch := range channels {
		select {
		case ch <- Event{Pid: pid}:
		default:
		}
	}
}

func (d *Detector) clearSuspicion(pid Pid) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.suspected, pid)
}
