package store

import "testing"

func TestTryLockExcludesWriteAgainstWrite(t *testing.T) {
	s := New()
	if !s.TryLock("k", true) {
		t.Fatalf("expected first write lock to succeed")
	}
	if s.TryLock("k", true) {
		t.Fatalf("expected second write lock to fail while the first is held")
	}
	s.Unlock("k", true)
	if !s.TryLock("k", true) {
		t.Fatalf("expected write lock to succeed after release")
	}
}

func TestTryLockAllowsConcurrentReads(t *testing.T) {
	s := New()
	if !s.TryLock("k", false) {
		t.Fatalf("expected first read lock to succeed")
	}
	if !s.TryLock("k", false) {
		t.Fatalf("expected second read lock to succeed")
	}
	if s.TryLock("k", true) {
		t.Fatalf("expected write lock to fail while reads are outstanding")
	}
	s.Unlock("k", false)
	s.Unlock("k", false)
	if !s.TryLock("k", true) {
		t.Fatalf("expected write lock to succeed once reads are released")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	s := New()
	s.TryLock("k", true)
	s.Unlock("k", true)
	s.Unlock("k", true)
	if !s.TryLock("k", true) {
		t.Fatalf("expected write lock to still be acquirable after repeated unlock")
	}
}

func TestApplyAndGet(t *testing.T) {
	s := New()
	s.Apply("k", []byte("v1"), 1)
	value, version, found := s.Get("k")
	if !found || string(value) != "v1" || version != 1 {
		t.Fatalf("unexpected get result: value=%q version=%d found=%v", value, version, found)
	}
}

func TestVersionDefaultsToZeroForUnseenKey(t *testing.T) {
	s := New()
	version, found := s.Version("ghost")
	if !found || version != 0 {
		t.Fatalf("expected version 0/found=true for an unseen key, got %d/%v", version, found)
	}
}

func TestStatsCountsOnlyKeysWithAValue(t *testing.T) {
	s := New()
	s.TryLock("locked-only", true)
	s.Apply("k1", []byte("abc"), 1)
	s.Apply("k2", []byte("de"), 1)
	keys, bytes := s.Stats()
	if keys != 2 || bytes != 5 {
		t.Fatalf("expected 2 keys/5 bytes, got %d/%d", keys, bytes)
	}
}
