package transport

import (
	"testing"

	"github.com/ringkv/paxoscommit/internal/actor"
)

func TestRegistryDeliversToRegisteredMailbox(t *testing.T) {
	r := NewRegistry()
	to := actor.PID{Node: "n1", Role: "tm"}
	from := actor.PID{Node: "n2", Role: "tp"}
	mailbox := actor.NewMailbox(1)
	r.Register(to, mailbox)

	r.Send(to, from, "hello")

	select {
	case env := <-mailbox.Chan():
		if env.Payload != "hello" || env.From != from {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	default:
		t.Fatalf("expected a delivered envelope")
	}
}

func TestRegistrySendToUnregisteredIsDropped(t *testing.T) {
	r := NewRegistry()
	to := actor.PID{Node: "ghost", Role: "tm"}
	r.Send(to, actor.PID{}, "hello")
	if r.Reachable(to) {
		t.Fatalf("expected ghost to be unreachable")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	pid := actor.PID{Node: "n1", Role: "tm"}
	r.Register(pid, actor.NewMailbox(1))
	if !r.Reachable(pid) {
		t.Fatalf("expected pid to be reachable after register")
	}
	r.Unregister(pid)
	if r.Reachable(pid) {
		t.Fatalf("expected pid to be unreachable after unregister")
	}
}
