package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives status events from topics it is subscribed to,
// over a bounded channel. When the buffer is full, send drops the
// oldest queued event to make room for the new one rather than
// blocking the caller — a subscriber that falls behind sees gaps, not
// a stalled publisher.
type Subscriber struct {
	// id uniquely identifies this subscriber.
	id string

	// ch is the buffered channel events are sent on.
	ch chan *StatusEvent

	// topics tracks which topics this subscriber is on.
	topics map[string]struct{}
	mu     sync.RWMutex

	// filter is an optional predicate. If set, only events matching
	// the filter are delivered.
	filter func(*StatusEvent) bool

	// closed prevents double-close of the channel.
	closed atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		id:     id,
		ch:     make(chan *StatusEvent, bufferSize),
		topics: make(map[string]struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel.
func (s *Subscriber) C() <-chan *StatusEvent { return s.ch }

// SetFilter sets an optional event filter predicate.
func (s *Subscriber) SetFilter(fn func(*StatusEvent) bool) {
	s.filter = fn
}

// addTopic records that this subscriber is on the given topic.
func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

// removeTopic removes a topic from the subscriber's tracked set.
func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics returns a copy of all subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// send attempts to deliver an event to the subscriber. sent is false if
// the event was dropped because the subscriber is closed, the event
// was filtered out, or the buffer was still full when the send was
// retried after an eviction (another sender refilled it, or the buffer
// size is 0). evicted reports whether an oldest queued event was
// evicted to make room — normally a full buffer costs the subscriber
// that oldest event rather than the new one, a gap which
// Broker.Publish surfaces via BrokerStats.TotalDropped.
func (s *Subscriber) send(evt *StatusEvent) (sent, evicted bool) {
	if s.closed.Load() {
		return false, false
	}

	if s.filter != nil && !s.filter(evt) {
		return false, false
	}

	select {
	case s.ch <- evt:
		return true, false
	default:
	}

	// Buffer full: evict the oldest queued event and retry once. If
	// the channel drains concurrently (a reader won the race) the
	// retry still succeeds; if it's Closed concurrently the retry's
	// send on a closed channel would panic, so re-check first.
	select {
	case <-s.ch:
		evicted = true
	default:
	}

	if s.closed.Load() {
		return false, evicted
	}

	select {
	case s.ch <- evt:
		return true, evicted
	default:
		return false, evicted
	}
}

// Close closes the subscriber channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
