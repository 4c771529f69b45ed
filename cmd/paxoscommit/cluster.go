package main

import (
	"context"
	"fmt"

	"github.com/ringkv/paxoscommit/client"
	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/dht"
	"github.com/ringkv/paxoscommit/internal/pubsub"
	"github.com/ringkv/paxoscommit/internal/quorum"
	"github.com/ringkv/paxoscommit/internal/store"
	"github.com/ringkv/paxoscommit/internal/tm"
	"github.com/ringkv/paxoscommit/internal/tp"
	"github.com/ringkv/paxoscommit/internal/transport"
	"pkt.systems/pslog"
)

// node is one ring member's co-located roles: a replica store, a TP host
// serving it, and a TM/RTM manager, all addressed by the same node name
// under different roles on the shared transport.
type node struct {
	name    string
	store   *store.Store
	tpHost  *tp.Host
	manager *tm.Manager
}

// cluster assembles an in-process ring out of node count members sharing
// one transport.Registry, standing in for the overlay/network this module
// does not own. It exists to give the commit core, the replica store, and
// the quorum client a real, wired entrypoint outside of their test files.
type cluster struct {
	reg    *transport.Registry
	ring   *dht.Ring
	nodes  []*node
	quorum *quorum.Client
	pubsub *pubsub.Registry
	client *client.Client
}

func buildCluster(ctx context.Context, nodeCount, replication int, logger pslog.Logger) *cluster {
	if nodeCount < 1 {
		nodeCount = 1
	}
	if replication > nodeCount {
		replication = nodeCount
	}

	reg := transport.NewRegistry()
	ring := dht.NewRing(8)

	c := &cluster{reg: reg, ring: ring, pubsub: pubsub.New()}

	for i := 0; i < nodeCount; i++ {
		name := nodeName(i)
		ring.Add(dht.NodeID(name))

		s := store.New()
		storePID := actor.PID{Node: name, Role: "store"}
		storeMailbox := actor.NewMailbox(64)
		reg.Register(storePID, storeMailbox)
		storeHost := store.NewHost(storePID, s, reg, logger, storeMailbox)
		go storeHost.Run(ctx)

		tpPID := actor.PID{Node: name, Role: "tp"}
		tpMailbox := actor.NewMailbox(64)
		reg.Register(tpPID, tpMailbox)
		tpHost := tp.NewHost(tp.Config{Self: tpPID, Replica: s, Transport: reg, Logger: logger}, tpMailbox)
		go tpHost.Run(ctx)

		tmPID := actor.PID{Node: name, Role: "tm"}
		tmMailbox := actor.NewMailbox(64)
		reg.Register(tmPID, tmMailbox)
		mgr := tm.New(tm.Config{
			Self: tmPID, ReplicationFactor: replication, MinRTMs: 1,
			Transport: reg, Router: ring, Replicas: ring, Logger: logger,
		}, tmMailbox)
		go mgr.Run(ctx)

		c.nodes = append(c.nodes, &node{name: name, store: s, tpHost: tpHost, manager: mgr})
	}

	quorumPID := actor.PID{Node: "cli", Role: "quorum"}
	quorumMailbox := actor.NewMailbox(64)
	reg.Register(quorumPID, quorumMailbox)
	c.quorum = quorum.New(quorum.Config{
		Self: quorumPID, Router: ring, ReplicaKeys: ring, Transport: reg, R: replication,
	}, quorumMailbox)

	clientPID := actor.PID{Node: "cli", Role: "client"}
	clientMailbox := actor.NewMailbox(64)
	reg.Register(clientPID, clientMailbox)
	c.client = client.New(client.Config{
		Self: clientPID, Reader: c.quorum, Writer: c.quorum, TM: c.nodes[0].manager,
		Transport: reg, PubSub: c.pubsub,
	}, clientMailbox)

	return c
}

func nodeName(i int) string {
	return fmt.Sprintf("node-%d", i)
}
