package quorum

import (
	"context"
	"testing"
	"time"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/dht"
	"github.com/ringkv/paxoscommit/internal/store"
	"github.com/ringkv/paxoscommit/internal/transport"
)

func threeNodeCluster(t *testing.T) (*transport.Registry, *dht.Ring, []*store.Store) {
	t.Helper()
	reg := transport.NewRegistry()
	ring := dht.NewRing(4)
	stores := make([]*store.Store, 0, 3)
	for i, name := range []string{"n1", "n2", "n3"} {
		ring.Add(dht.NodeID(name))
		s := store.New()
		stores = append(stores, s)
		self := actor.PID{Node: name, Role: "store"}
		mailbox := actor.NewMailbox(16)
		reg.Register(self, mailbox)
		host := store.NewHost(self, s, reg, nil, mailbox)
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go host.Run(ctx)
		_ = i
	}
	return reg, ring, stores
}

func TestQuorumReadReturnsHighestVersionAmongMajority(t *testing.T) {
	reg, ring, stores := threeNodeCluster(t)

	// Seed every replica position this key maps to directly, bypassing
	// the write path, so the read quorum has real data to disagree over.
	replicas := ring.ReplicaKeys("k", 3)
	for i, rk := range replicas {
		node, err := ring.Route(rk)
		if err != nil {
			t.Fatalf("route: %v", err)
		}
		for j, name := range []string{"n1", "n2", "n3"} {
			if string(node) == name {
				stores[j].Seed(rk, []byte("v"), uint64(i+1))
			}
		}
	}

	self := actor.PID{Node: "client1", Role: "client"}
	mailbox := actor.NewMailbox(16)
	reg.Register(self, mailbox)
	c := New(Config{Self: self, Router: ring, ReplicaKeys: ring, Transport: reg, R: 3}, mailbox)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, version, found, err := c.Read(ctx, "k")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !found || string(value) != "v" || version == 0 {
		t.Fatalf("unexpected read result: value=%q version=%d found=%v", value, version, found)
	}
}

func TestQuorumWriteThenReadRoundTrips(t *testing.T) {
	reg, ring, _ := threeNodeCluster(t)

	self := actor.PID{Node: "client1", Role: "client"}
	mailbox := actor.NewMailbox(16)
	reg.Register(self, mailbox)
	c := New(Config{Self: self, Router: ring, ReplicaKeys: ring, Transport: reg, R: 3}, mailbox)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Write(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	value, _, found, err := c.Read(ctx, "k")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !found || string(value) != "v1" {
		t.Fatalf("unexpected read-after-write: value=%q found=%v", value, found)
	}
}
