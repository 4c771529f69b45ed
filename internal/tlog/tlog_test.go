package tlog

import (
	"context"
	"errors"
	"testing"
)

type fakeReader struct {
	values map[string][]byte
	vers   map[string]uint64
}

func (r *fakeReader) Read(_ context.Context, key string) ([]byte, uint64, bool, error) {
	v, ok := r.values[key]
	if !ok {
		return nil, 0, false, nil
	}
	return v, r.vers[key], true, nil
}

func TestReadCachesWithinTransaction(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 3}}
	l := New(reader)

	v1, err := l.Read(context.Background(), "k")
	if err != nil || string(v1) != "v1" {
		t.Fatalf("unexpected first read: %v %v", v1, err)
	}
	reader.values["k"] = []byte("v2")
	v2, err := l.Read(context.Background(), "k")
	if err != nil || string(v2) != "v1" {
		t.Fatalf("expected cached value v1, got %v %v", v2, err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", l.Len())
	}
}

func TestReadNotFoundPoisonsKey(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{}}
	l := New(reader)
	if _, err := l.Read(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not-found error")
	}
	if _, err := l.Read(context.Background(), "missing"); err == nil {
		t.Fatalf("expected a second read of a poisoned key to fail too")
	}
}

func TestWriteCarriesForwardVersionRead(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 7}}
	l := New(reader)
	if _, err := l.Read(context.Background(), "k"); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := l.Write("k", []byte("v2")); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries := l.Entries()
	if len(entries) != 2 || entries[1].VersionRead != 7 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestRevertLastOp(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 1}}
	l := New(reader)
	_ = l.Write("k", []byte("v2"))
	if err := l.RevertLastOp(); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected log empty after revert, got %d entries", l.Len())
	}
	if err := l.RevertLastOp(); !errors.Is(err, ErrNothingToRevert) {
		t.Fatalf("expected ErrNothingToRevert, got %v", err)
	}
}

func TestEntriesFreezesLog(t *testing.T) {
	reader := &fakeReader{values: map[string][]byte{"k": []byte("v1")}, vers: map[string]uint64{"k": 1}}
	l := New(reader)
	_ = l.Write("k", []byte("v2"))
	_ = l.Entries()
	if err := l.Write("k2", []byte("v3")); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen after Entries, got %v", err)
	}
}
