// Package client implements the Node-facing public API: read, write, and
// the tx_* transaction operations layered over internal/tlog, plus the
// publish/subscribe surface. One Client serves one connected caller; it is
// not safe for concurrent use by multiple goroutines any more than a
// single TLog transaction is, matching the actor-model rule that a
// transaction belongs to exactly one client.
package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/ringkv/paxoscommit/internal/actor"
	"github.com/ringkv/paxoscommit/internal/failure"
	"github.com/ringkv/paxoscommit/internal/pubsub"
	"github.com/ringkv/paxoscommit/internal/tlog"
	"github.com/ringkv/paxoscommit/internal/tm"
	"github.com/ringkv/paxoscommit/internal/transport"
)

// Reader performs a direct, non-transactional quorum read against the
// ring; it is the same abstraction internal/tlog.Reader uses for
// transactional reads, reused here for the standalone read() operation.
type Reader = tlog.Reader

// Writer performs a direct, non-transactional quorum write.
type Writer interface {
	Write(ctx context.Context, key string, value []byte) error
}

// CommitSubmitter is this client's local TM: the target of tx_commit.
type CommitSubmitter interface {
	Commit(ctx context.Context, txID, clientsID string, client actor.PID, entries []tlog.Entry, rtms []tm.RTMDescriptor) error
}

// Config wires a Client to its collaborators.
type Config struct {
	Self      actor.PID
	Reader    Reader
	Writer    Writer
	TM        CommitSubmitter
	Transport transport.Transport
	PubSub    *pubsub.Registry
	RTMs      []tm.RTMDescriptor
}

// Client is the Node-facing handle a caller uses for the operations named
// in the external interfaces table: read, write, tx_start, tx_read,
// tx_write, tx_revert_last_op, tx_commit, tx_reset, publish, subscribe,
// unsubscribe, get_subscribers.
type Client struct {
	cfg    Config
	mailbox *actor.Mailbox
	tx     *tlog.Log
	txID   string
}

// New constructs a Client. mailbox is where this client's commit_reply
// arrives; callers must register it with cfg.Transport under cfg.Self
// before calling TxCommit.
func New(cfg Config, mailbox *actor.Mailbox) *Client {
	return &Client{cfg: cfg, mailbox: mailbox}
}

// Read performs a direct, non-transactional read.
func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	value, _, found, err := c.cfg.Reader.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failure.New(failure.NotFound, "key %q not found", key)
	}
	return value, nil
}

// Write performs a direct, non-transactional write.
func (c *Client) Write(ctx context.Context, key string, value []byte) error {
	return c.cfg.Writer.Write(ctx, key, value)
}

// TxStart opens a new transaction on this client handle. Mirrors
// Transaction.start(): starting a second transaction before the first has
// been committed or reset is a structured tx_in_progress failure rather
// than silently discarding the open one. An empty txID is filled in with a
// fresh uuid, matching the original API's caller-optional transaction id.
func (c *Client) TxStart(txID string) error {
	if c.tx != nil {
		return failure.New(failure.TxInProgress, "transaction %q still open", c.txID)
	}
	if txID == "" {
		txID = uuid.NewString()
	}
	c.tx = tlog.New(c.cfg.Reader)
	c.txID = txID
	return nil
}

// TxRead is read() scoped to the open transaction's TLog.
func (c *Client) TxRead(ctx context.Context, key string) ([]byte, error) {
	if c.tx == nil {
		return nil, failure.New(failure.Unknown, "no open transaction")
	}
	return c.tx.Read(ctx, key)
}

// TxWrite is write() scoped to the open transaction's TLog.
func (c *Client) TxWrite(key string, value []byte) error {
	if c.tx == nil {
		return failure.New(failure.Unknown, "no open transaction")
	}
	return c.tx.Write(key, value)
}

// TxRevertLastOp undoes the most recent tx_read/tx_write in the open
// transaction.
func (c *Client) TxRevertLastOp() error {
	if c.tx == nil {
		return failure.New(failure.Unknown, "no open transaction")
	}
	return c.tx.RevertLastOp()
}

// TxReset unconditionally discards the open transaction's TLog without
// contacting the ring. Carried forward from Transaction.reset() in the
// original API; cheap, and useful for callers recovering from a
// client-side error without waiting on a round trip.
func (c *Client) TxReset() {
	c.tx = nil
	c.txID = ""
}

// TxCommit freezes the open transaction's TLog and submits it to the local
// TM, blocking until the TM's commit_reply arrives or ctx is cancelled. On
// success the TLog is reset; on abort it is preserved so the caller can
// inspect what was attempted, mirroring Transaction.commit() resetting
// transLog only when the RPC reports {ok}.
func (c *Client) TxCommit(ctx context.Context) (tm.Decision, error) {
	if c.tx == nil {
		return tm.Undecided, failure.New(failure.Unknown, "no open transaction")
	}
	entries := c.tx.Entries()
	txID := c.txID

	if err := c.cfg.TM.Commit(ctx, txID, txID, c.cfg.Self, entries, c.cfg.RTMs); err != nil {
		return tm.Undecided, err
	}

	for {
		select {
		case <-ctx.Done():
			return tm.Undecided, ctx.Err()
		case env := <-c.mailbox.Chan():
			reply, ok := env.Payload.(tm.CommitReply)
			if !ok || reply.ClientsID != txID {
				continue
			}
			if reply.Decision == tm.Commit {
				c.tx = nil
				c.txID = ""
			}
			return reply.Decision, nil
		}
	}
}

// Publish records content as topic's latest message. Actual delivery to
// subscribed endpoints is the caller's responsibility; the broker fan-out
// itself is out of scope.
func (c *Client) Publish(topic string, content []byte) error {
	return c.cfg.PubSub.Publish(topic, content)
}

// Subscribe registers endpoint as a subscriber of topic.
func (c *Client) Subscribe(topic, endpoint string) {
	c.cfg.PubSub.Subscribe(topic, endpoint)
}

// Unsubscribe removes endpoint from topic's subscriber set. Fails
// not_found if endpoint was not subscribed.
func (c *Client) Unsubscribe(topic, endpoint string) error {
	return c.cfg.PubSub.Unsubscribe(topic, endpoint)
}

// GetSubscribers returns topic's current subscriber set.
func (c *Client) GetSubscribers(topic string) []string {
	return c.cfg.PubSub.GetSubscribers(topic)
}

// TxID reports the currently open transaction's id, if any.
func (c *Client) TxID() (string, bool) {
	if c.tx == nil {
		return "", false
	}
	return c.txID, true
}
