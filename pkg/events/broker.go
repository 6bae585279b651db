// Package events fans session diffs out to live subscribers.
package events

import (
	"log/slog"
	"sync"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Broker handles active diff subscriptions, keyed by session id.
// Publishing never blocks: a full subscriber buffer drops the message.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *domain.SnapshotDiff]struct{}
	buffer      int
	logger      *slog.Logger
}

type Option func(*Broker)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = l
	}
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribers: make(map[string]map[chan *domain.SnapshotDiff]struct{}),
		buffer:      DefaultBuffer,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber for sessionID. The returned cancel func
// unregisters it and closes the channel; calling it twice is safe.
func (b *Broker) Subscribe(sessionID string) (<-chan *domain.SnapshotDiff, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *domain.SnapshotDiff, b.buffer)
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[chan *domain.SnapshotDiff]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[sessionID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(b.subscribers, sessionID)
			}
		}
	}
}

// Publish delivers diff to every subscriber of its session.
func (b *Broker) Publish(diff *domain.SnapshotDiff) {
	if diff == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[diff.SessionID] {
		select {
		case ch <- diff:
		default:
			b.logger.Warn("subscriber buffer full, dropping diff", "session_id", diff.SessionID)
		}
	}
}

// CloseSession closes and removes every subscriber of sessionID.
func (b *Broker) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[sessionID] {
		close(ch)
	}
	delete(b.subscribers, sessionID)
}

// Subscribers returns the number of live subscribers for sessionID.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
