// Package pubsub implements the reference publish/subscribe surface named
// in the client API table: an in-memory, transport-agnostic topic registry.
// The broker itself (durable delivery, fan-out across nodes) is out of
// scope; this package only needs to make publish/subscribe/unsubscribe/
// get_subscribers round-trip correctly for a single node.
package pubsub

import (
	"sync"

	"github.com/ringkv/paxoscommit/internal/failure"
)

// Registry tracks which subscriber endpoints are currently registered for
// each topic.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[string]struct{}
	last map[string][]byte
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{subs: make(map[string]map[string]struct{})}
}

// Subscribe registers endpoint as a subscriber of topic, idempotently.
func (r *Registry) Subscribe(topic, endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[topic] == nil {
		r.subs[topic] = make(map[string]struct{})
	}
	r.subs[topic][endpoint] = struct{}{}
}

// Unsubscribe removes endpoint from topic. Unsubscribing an endpoint that
// was never subscribed to topic reports not_found: unsubscribe(t,u) twice
// returns ok then {fail, not_found}, it does not silently succeed twice.
func (r *Registry) Unsubscribe(topic, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.subs[topic]
	if !ok {
		return failure.New(failure.NotFound, "endpoint %q not subscribed to %q", endpoint, topic)
	}
	if _, ok := subs[endpoint]; !ok {
		return failure.New(failure.NotFound, "endpoint %q not subscribed to %q", endpoint, topic)
	}
	delete(subs, endpoint)
	if len(subs) == 0 {
		delete(r.subs, topic)
	}
	return nil
}

// GetSubscribers returns the current subscriber set for topic.
func (r *Registry) GetSubscribers(topic string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.subs[topic]
	out := make([]string, 0, len(subs))
	for endpoint := range subs {
		out = append(out, endpoint)
	}
	return out
}

// Publish records content as the latest message for topic and reports ok.
// Delivery to subscribed endpoints is the caller's responsibility, since
// the transport fan-out to the broker's subscriber set is out of scope
// here; callers that want to fan out call GetSubscribers separately.
func (r *Registry) Publish(topic string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = make(map[string][]byte)
	}
	r.last[topic] = content
	return nil
}

// LastPublished returns the most recent content published to topic, if any.
func (r *Registry) LastPublished(topic string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	content, ok := r.last[topic]
	return content, ok
}
