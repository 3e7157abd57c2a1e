package collector

import (
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// Broker fans received event JSON out to all live-tail subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan string
	nextID      atomic.Int64
}

// NewBroker creates a live-tail broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan string)}
}

// Subscribe registers a new client. The channel is buffered; slow
// consumers have events dropped.
func (b *Broker) Subscribe() (int64, <-chan string) {
	id := b.nextID.Add(1)
	ch := make(chan string, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends payload to every subscriber without blocking.
func (b *Broker) Publish(payload string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
