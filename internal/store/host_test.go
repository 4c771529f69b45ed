package store

import (
	"context"
	"testing"
	"time"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/transport"
)

func TestHostAnswersReadRequest(t *testing.T) {
	s := New()
	s.Seed("k", []byte("v1"), 3)
	reg := transport.NewRegistry()
	self := actor.PID{Node: "n1", Role: "store"}
	mailbox := actor.NewMailbox(8)
	reg.Register(self, mailbox)

	host := NewHost(self, s, reg, nil, mailbox)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Run(ctx)

	reply := actor.PID{Node: "client1", Role: "client"}
	replyBox := actor.NewMailbox(4)
	reg.Register(reply, replyBox)
	mailbox.Deliver(actor.Envelope{To: self, Payload: ReadRequest{Key: "k", ReplyTo: reply}})

	select {
	case env := <-replyBox.Chan():
		resp, ok := env.Payload.(ReadResponse)
		if !ok || !resp.Found || string(resp.Value) != "v1" || resp.Version != 3 {
			t.Fatalf("unexpected read response: %+v ok=%v", resp, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for read response")
	}
}

func TestHostAnswersWriteRequest(t *testing.T) {
	s := New()
	reg := transport.NewRegistry()
	self := actor.PID{Node: "n1", Role: "store"}
	mailbox := actor.NewMailbox(8)
	reg.Register(self, mailbox)

	host := NewHost(self, s, reg, nil, mailbox)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Run(ctx)

	reply := actor.PID{Node: "client1", Role: "client"}
	replyBox := actor.NewMailbox(4)
	reg.Register(reply, replyBox)
	mailbox.Deliver(actor.Envelope{To: self, Payload: WriteRequest{Key: "k", Value: []byte("v2"), Version: 1, ReplyTo: reply}})

	select {
	case env := <-replyBox.Chan():
		resp, ok := env.Payload.(WriteResponse)
		if !ok || !resp.OK {
			t.Fatalf("unexpected write response: %+v ok=%v", resp, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for write response")
	}
	value, version, found := s.Get("k")
	if !found || string(value) != "v2" || version != 1 {
		t.Fatalf("unexpected stored value: %q %d found=%v", value, version, found)
	}
}
