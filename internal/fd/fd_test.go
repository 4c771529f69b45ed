package fd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ringkv/paxoscommit/internal/clock"
)

type scriptedProber struct {
	fail chan bool
}

func (p *scriptedProber) Ping(ctx context.Context, pid Pid) error {
	select {
	case shouldFail := <-p.fail:
		if shouldFail {
			return errors.New("probe failed")
		}
		return nil
	default:
		return nil
	}
}

func TestDetectorSuspectsAfterFailedProbe(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	prober := &scriptedProber{fail: make(chan bool, 4)}
	d := New(Config{Prober: prober, Clock: clk, Interval: time.Second, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober.fail <- true
	sub := d.Subscribe(ctx, Pid("node-a"))
	defer sub.Cancel()

	select {
	case ev := <-sub.Events():
		if ev.Pid != Pid("node-a") {
			t.Fatalf("unexpected event pid: %v", ev.Pid)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a crash event")
	}
	if !d.IsSuspected(Pid("node-a")) {
		t.Fatalf("expected node-a to be suspected")
	}
}

func TestDetectorRefcountsSubscriptions(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	d := New(Config{Clock: clk, Interval: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1 := d.Subscribe(ctx, Pid("node-a"))
	sub2 := d.Subscribe(ctx, Pid("node-a"))

	sub1.Cancel()
	if !d.stillWatched(Pid("node-a")) {
		t.Fatalf("expected node-a to still be watched with one subscriber left")
	}
	sub2.Cancel()
	if d.stillWatched(Pid("node-a")) {
		t.Fatalf("expected node-a to stop being watched once every subscriber cancels")
	}
}
