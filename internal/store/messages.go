package store

import "github.com/ringkv/paxoscommit/internal/actor"

// ReadRequest asks a node's store Host for the current value/version at
// key. Used by the direct, non-transactional read() operation and by the
// quorum fallback a TLog miss falls through to.
type ReadRequest struct {
	Key     string
	ReplyTo actor.PID
}

// ReadResponse answers a ReadRequest.
type ReadResponse struct {
	Key     string
	Value   []byte
	Version uint64
	Found   bool
}

// WriteRequest asks a node's store Host to install value at key under the
// given version, unconditionally: the direct write() operation has no
// version_read to validate against, unlike a transactional write inside a
// TLog entry.
type WriteRequest struct {
	Key     string
	Value   []byte
	Version uint64
	ReplyTo actor.PID
}

// WriteResponse answers a WriteRequest.
type WriteResponse struct {
	Key string
	OK  bool
}
