// Package tlog implements the client-side transaction log: the buffered,
// per-transaction sequence of reads and writes a client accumulates before
// handing it to the local TM as a single, frozen commit request.
package tlog

import (
	"context"
	"errors"
	"fmt"
)

// Op names the two operations a TLogEntry records.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Status is the outcome of the operation that produced an entry.
type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// Entry is one TLog record: the operation, the key it touched, the value
// read or to be written, the version the operation was based on, and
// whether the operation itself succeeded against the ring.
type Entry struct {
	Op          Op
	Key         string
	Value       []byte
	VersionRead uint64
	Status      Status
}

// Reader performs the quorum read a TLog miss falls through to. It is the
// client's view of the DHT; the overlay routing and replica quorum math
// behind it are out of scope for this module.
type Reader interface {
	Read(ctx context.Context, key string) (value []byte, version uint64, found bool, err error)
}

// Log is the ordered, per-transaction sequence of entries a client builds
// before commit. It is not safe for concurrent use: a transaction belongs
// to exactly one client goroutine, matching the actor-model rule that
// nothing touches another actor's private state.
type Log struct {
	reader  Reader
	entries []Entry
	undo    *Entry
	frozen  bool
}

// New starts a fresh transaction over reader.
func New(reader Reader) *Log {
	return &Log{reader: reader}
}

// ErrFrozen is returned by Read, Write and RevertLastOp once Entries has
// frozen the log for commit.
var ErrFrozen = errors.New("tlog: transaction already submitted for commit")

// ErrNothingToRevert is returned by RevertLastOp when the log is empty or
// the last operation has already been reverted.
var ErrNothingToRevert = errors.New("tlog: no operation to revert")

// Read returns the TLog's cached value for key if a prior entry exists;
// otherwise it issues a quorum read and appends the result, poisoning the
// key for the rest of the transaction on failure.
func (l *Log) Read(ctx context.Context, key string) ([]byte, error) {
	if l.frozen {
		return nil, ErrFrozen
	}
	if entry, ok := l.last(key); ok {
		if entry.Status == StatusFail {
			return nil, fmt.Errorf("tlog: key %q already failed in this transaction", key)
		}
		return entry.Value, nil
	}
	value, version, found, err := l.reader.Read(ctx, key)
	if err != nil || !found {
		l.push(Entry{Op: OpRead, Key: key, Status: StatusFail})
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("tlog: key %q not found", key)
	}
	l.push(Entry{Op: OpRead, Key: key, Value: value, VersionRead: version, Status: StatusOK})
	return value, nil
}

// Write appends a tentative write entry carrying the latest version_read
// known for key from a prior read in this transaction, or 0.
func (l *Log) Write(key string, value []byte) error {
	if l.frozen {
		return ErrFrozen
	}
	versionRead := uint64(0)
	if entry, ok := l.last(key); ok && entry.Status == StatusOK {
		versionRead = entry.VersionRead
	}
	l.push(Entry{Op: OpWrite, Key: key, Value: value, VersionRead: versionRead, Status: StatusOK})
	return nil
}

// RevertLastOp restores the log to the state it was in before the most
// recent operation. Only one step of undo is available; reverting twice in
// a row without an intervening operation is an error.
func (l *Log) RevertLastOp() error {
	if l.frozen {
		return ErrFrozen
	}
	if len(l.entries) == 0 || l.undo != nil {
		return ErrNothingToRevert
	}
	last := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	l.undo = &last
	return nil
}

// Reset discards the entire in-progress transaction, returning the client
// to a clean slate without contacting the ring.
func (l *Log) Reset() {
	l.entries = nil
	l.undo = nil
	l.frozen = false
}

// Entries returns the frozen sequence of entries for submission to the TM.
// Calling it marks the log frozen: no further Read/Write/RevertLastOp
// calls are permitted once a transaction has been handed off to commit.
func (l *Log) Entries() []Entry {
	l.frozen = true
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many entries are currently buffered.
func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) push(e Entry) {
	l.entries = append(l.entries, e)
	l.undo = nil
}

func (l *Log) last(key string) (Entry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Key == key {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}
