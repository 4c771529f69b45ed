// Package quorum implements the direct, non-transactional read() and
// write() operations named in the client API table: a fan-out across the R
// nodes a key's replica-key function names, resolved through the overlay's
// Router, collected until a majority responds. It is the production
// collaborator behind client.Reader and client.Writer; internal/tlog.Reader
// uses the same Read for a TLog miss.
package quorum

import (
	"context"
	"sort"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/dht"
	"github.com/ringkv/paxoscommit/internal/failure"
	"github.com/ringkv/paxoscommit/internal/paxos"
	"github.com/ringkv/paxoscommit/internal/store"
	"github.com/ringkv/paxoscommit/internal/transport"
)

// Config wires a Client to the overlay and transport it fans requests out
// over.
type Config struct {
	Self        actor.PID
	Router      dht.Router
	ReplicaKeys dht.ReplicaKeys
	Transport   transport.Transport
	R           int
	StoreRole   string
}

// Client performs quorum reads and writes against the ring's replica
// stores. One Client instance is bound to one reply mailbox; like a TLog,
// it belongs to a single caller at a time.
type Client struct {
	cfg     Config
	mailbox *actor.Mailbox
}

// New constructs a quorum Client. mailbox is where replies from
// store.Host instances arrive; callers must register it with
// cfg.Transport under cfg.Self before issuing a Read or Write.
func New(cfg Config, mailbox *actor.Mailbox) *Client {
	if cfg.R <= 0 {
		cfg.R = 1
	}
	if cfg.StoreRole == "" {
		cfg.StoreRole = "store"
	}
	return &Client{cfg: cfg, mailbox: mailbox}
}

func (c *Client) replicaPIDs(key string) ([]string, []actor.PID, error) {
	replicas := c.cfg.ReplicaKeys.ReplicaKeys(key, c.cfg.R)
	if len(replicas) == 0 {
		replicas = []string{key}
	}
	pids := make([]actor.PID, 0, len(replicas))
	for _, rk := range replicas {
		node, err := c.cfg.Router.Route(rk)
		if err != nil {
			continue
		}
		pids = append(pids, actor.PID{Node: string(node), Role: c.cfg.StoreRole})
	}
	if len(pids) == 0 {
		return replicas, nil, failure.New(failure.Connection, "no reachable replica for key %q", key)
	}
	return replicas, pids, nil
}

// Read fans a ReadRequest out to key's R replicas and returns the
// highest-versioned response seen once a majority has answered.
func (c *Client) Read(ctx context.Context, key string) ([]byte, uint64, bool, error) {
	replicas, pids, err := c.replicaPIDs(key)
	if err != nil {
		return nil, 0, false, err
	}
	for i, pid := range pids {
		c.cfg.Transport.Send(pid, c.cfg.Self, store.ReadRequest{Key: replicas[i], ReplyTo: c.cfg.Self})
	}
	need := paxos.Quorum(len(pids))

	var best store.ReadResponse
	haveBest := false
	seen := 0
	for seen < len(pids) {
		select {
		case <-ctx.Done():
			return nil, 0, false, ctx.Err()
		case env := <-c.mailbox.Chan():
			resp, ok := env.Payload.(store.ReadResponse)
			if !ok {
				continue
			}
			seen++
			if resp.Found && (!haveBest || resp.Version > best.Version) {
				best = resp
				haveBest = true
			}
			if seen >= need && (haveBest || seen >= len(pids)) {
				return best.Value, best.Version, haveBest, nil
			}
		}
	}
	return best.Value, best.Version, haveBest, nil
}

// Write fans a WriteRequest out to key's R replicas, first reading the
// current quorum version so the new write is strictly newer, and waits for
// a majority of WriteResponse acks before reporting ok.
func (c *Client) Write(ctx context.Context, key string, value []byte) error {
	_, _, currentVersion, err := c.readVersion(ctx, key)
	if err != nil {
		return err
	}
	replicas, pids, err := c.replicaPIDs(key)
	if err != nil {
		return err
	}
	newVersion := currentVersion + 1
	for i, pid := range pids {
		c.cfg.Transport.Send(pid, c.cfg.Self, store.WriteRequest{Key: replicas[i], Value: value, Version: newVersion, ReplyTo: c.cfg.Self})
	}
	need := paxos.Quorum(len(pids))
	acked := 0
	seen := 0
	for seen < len(pids) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-c.mailbox.Chan():
			resp, ok := env.Payload.(store.WriteResponse)
			if !ok {
				continue
			}
			seen++
			if resp.OK {
				acked++
			}
			if acked >= need {
				return nil
			}
		}
	}
	if acked >= need {
		return nil
	}
	return failure.New(failure.Connection, "write to %q did not reach a quorum of %d replicas", key, need)
}

func (c *Client) readVersion(ctx context.Context, key string) ([]byte, bool, uint64, error) {
	value, version, found, err := c.Read(ctx, key)
	return value, found, version, err
}

// ReplicaNodes reports, in sorted order, which nodes currently own key's R
// replicas. Used by the status CLI to render where a key actually lives
// without exposing the raw PIDs.
func (c *Client) ReplicaNodes(key string) ([]string, error) {
	_, pids, err := c.replicaPIDs(key)
	if err != nil {
		return nil, err
	}
	return sortedNodes(pids), nil
}

// sortedNodes is a small helper used by callers (e.g. the status CLI) that
// want a deterministic listing of which nodes a key currently maps to.
func sortedNodes(pids []actor.PID) []string {
	out := make([]string, 0, len(pids))
	for _, p := range pids {
		out = append(out, p.Node)
	}
	sort.Strings(out)
	return out
}
