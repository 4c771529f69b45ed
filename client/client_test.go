package client

import (
	"context"
	"testing"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/pubsub"
	"github.com/ringkv/paxoscommit/internal/tlog"
	"github.com/ringkv/paxoscommit/internal/tm"
)

type fakeReader struct {
	values map[string][]byte
	vers   map[string]uint64
}

func (r *fakeReader) Read(_ context.Context, key string) ([]byte, uint64, bool, error) {
	v, ok := r.values[key]
	return v, r.vers[key], ok, nil
}

type fakeTM struct {
	lastEntries []tlog.Entry
	reply       tm.Decision
	replyTo     *actor.Mailbox
}

func (f *fakeTM) Commit(_ context.Context, txID, clientsID string, client actor.PID, entries []tlog.Entry, rtms []tm.RTMDescriptor) error {
	f.lastEntries = entries
	f.replyTo.Deliver(actor.Envelope{To: client, Payload: tm.CommitReply{ClientsID: clientsID, Decision: f.reply}})
	return nil
}

func TestTxStartRejectsNestedTransaction(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{}, vers: map[string]uint64{}}
	c := New(Config{Self: actor.PID{Node: "n1", Role: "client"}, Reader: reader, PubSub: pubsub.New()}, actor.NewMailbox(1))
	if err := c.TxStart("t1"); err != nil {
		t.Fatalf("first TxStart: %v", err)
	}
	if err := c.TxStart("t2"); err == nil {
		t.Fatalf("expected TxStart to reject a nested transaction")
	}
}

func TestTxCommitCommitPathResetsLog(t *testing.T) {
	mailbox := actor.NewMailbox(4)
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 1}}
	fake := &fakeTM{reply: tm.Commit, replyTo: mailbox}
	c := New(Config{Self: actor.PID{Node: "n1", Role: "client"}, Reader: reader, TM: fake, PubSub: pubsub.New()}, mailbox)

	if err := c.TxStart("t1"); err != nil {
		t.Fatalf("TxStart: %v", err)
	}
	if _, err := c.TxRead(context.Background(), "k"); err != nil {
		t.Fatalf("TxRead: %v", err)
	}
	if err := c.TxWrite("k", []byte("v2")); err != nil {
		t.Fatalf("TxWrite: %v", err)
	}
	decision, err := c.TxCommit(context.Background())
	if err != nil {
		t.Fatalf("TxCommit: %v", err)
	}
	if decision != tm.Commit {
		t.Fatalf("expected commit decision, got %v", decision)
	}
	if _, open := c.TxID(); open {
		t.Fatalf("expected TLog to be reset after a committed transaction")
	}
	if len(fake.lastEntries) != 2 {
		t.Fatalf("expected 2 entries submitted, got %d", len(fake.lastEntries))
	}
}

func TestTxCommitAbortPathPreservesLog(t *testing.T) {
	mailbox := actor.NewMailbox(4)
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 1}}
	fake := &fakeTM{reply: tm.Abort, replyTo: mailbox}
	c := New(Config{Self: actor.PID{Node: "n1", Role: "client"}, Reader: reader, TM: fake, PubSub: pubsub.New()}, mailbox)

	_ = c.TxStart("t1")
	_ = c.TxWrite("k", []byte("v2"))
	decision, err := c.TxCommit(context.Background())
	if err != nil {
		t.Fatalf("TxCommit: %v", err)
	}
	if decision != tm.Abort {
		t.Fatalf("expected abort decision, got %v", decision)
	}
	if _, open := c.TxID(); !open {
		t.Fatalf("expected TLog to be preserved after an aborted transaction")
	}
}

func TestPublishRecordsContentForSubscribers(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{}, vers: map[string]uint64{}}
	pubSub := pubsub.New()
	c := New(Config{Self: actor.PID{Node: "n1", Role: "client"}, Reader: reader, PubSub: pubSub}, actor.NewMailbox(1))
	c.Subscribe("topic", "http://a")
	if err := c.Publish("topic", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	content, ok := pubSub.LastPublished("topic")
	if !ok || string(content) != "hello" {
		t.Fatalf("unexpected published content: %q ok=%v", content, ok)
	}
}

func TestPubSubRoundTrip(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{}, vers: map[string]uint64{}}
	c := New(Config{Self: actor.PID{Node: "n1", Role: "client"}, Reader: reader, PubSub: pubsub.New()}, actor.NewMailbox(1))
	c.Subscribe("topic", "http://a")
	if got := c.GetSubscribers("topic"); len(got) != 1 {
		t.Fatalf("expected 1 subscriber, got %v", got)
	}
	if err := c.Unsubscribe("topic", "http://a"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if got := c.GetSubscribers("topic"); len(got) != 0 {
		t.Fatalf("expected 0 subscribers, got %v", got)
	}
}
