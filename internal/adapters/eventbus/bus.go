package eventbus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

// ErrStopped is returned when subscribing to a stopped bus.
var ErrStopped = errors.New("eventbus is stopped")

const defaultBufferSize = 10

// Subscriber is a channel that receives events for a specific topic.
// Use a buffered channel to avoid blocking the publisher.
type Subscriber chan domain.Event

// EventBus defines the interface for publishing and subscribing to events.
type EventBus interface {
	domain.Publisher
	Subscribe(topic string, bufferSize int) (Subscriber, error)
	Unsubscribe(topic string, sub Subscriber) error
	Stop()
}

// SimpleEventBus is a basic in-memory event bus implementation using channels.
type SimpleEventBus struct {
	subscribers map[string]map[Subscriber]struct{} // Topic -> set of subscriber channels
	mu          sync.RWMutex                       // Protects subscribers and isStopped
	stopChan    chan struct{}                      // To signal shutdown
	isStopped   bool
	dropped     atomic.Int64 // Events lost to full subscriber buffers
	logger      zerolog.Logger
}

// NewSimpleEventBus creates a new SimpleEventBus.
func NewSimpleEventBus(logger zerolog.Logger) *SimpleEventBus {
	return &SimpleEventBus{
		subscribers: make(map[string]map[Subscriber]struct{}),
		stopChan:    make(chan struct{}),
		logger:      logger.With().Str("component", "eventbus").Logger(),
	}
}

// Publish sends an event to all subscribers of the event's topic.
// Uses non-blocking sends to prevent slow subscribers from blocking the bus.
func (b *SimpleEventBus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isStopped {
		b.logger.Trace().Str("topic", event.Topic).Msg("bus stopped, publish ignored")
		return
	}

	subs := b.subscribers[event.Topic]
	for sub := range subs {
		select {
		case sub <- event:
		case <-b.stopChan:
			return
		default:
			// Subscriber buffer is full; drop the event for this subscriber.
			b.dropped.Add(1)
			b.logger.Warn().Str("topic", event.Topic).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribe creates a new subscriber channel for a given topic.
// bufferSize determines the capacity of the subscriber channel.
func (b *SimpleEventBus) Subscribe(topic string, bufferSize int) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isStopped {
		return nil, ErrStopped
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	sub := make(Subscriber, bufferSize)
	if _, found := b.subscribers[topic]; !found {
		b.subscribers[topic] = make(map[Subscriber]struct{})
	}
	b.subscribers[topic][sub] = struct{}{}
	return sub, nil
}

// Unsubscribe removes a subscriber channel from a topic.
// It's the subscriber's responsibility to close their channel afterwards.
func (b *SimpleEventBus) Unsubscribe(topic string, sub Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, found := b.subscribers[topic]
	if !found {
		return fmt.Errorf("topic %s not found", topic)
	}
	if _, ok := subs[sub]; !ok {
		return fmt.Errorf("subscriber not found for topic %s", topic)
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
	return nil
}

// Dropped returns the number of events dropped because a subscriber was full.
func (b *SimpleEventBus) Dropped() int64 { return b.dropped.Load() }

// Stop signals the event bus to stop publishing and cleans up resources.
func (b *SimpleEventBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isStopped {
		return
	}
	close(b.stopChan)
	b.isStopped = true
	b.subscribers = make(map[string]map[Subscriber]struct{})
	b.logger.Debug().Int64("dropped", b.dropped.Load()).Msg("event bus stopped")
}
