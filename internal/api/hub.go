package api

import (
	"sync"
	"sync/atomic"

	"github.com/1broseidon/xwinsys/internal/platform"
)

// DefaultHubBuffer is the per-subscriber queue length used by NewHub when
// given a non-positive size.
const DefaultHubBuffer = 64

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan platform.Event]struct{}
	buffer int

	dropped atomic.Uint64
}

// NewHub returns a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultHubBuffer
	}
	return &Hub{
		subs:   make(map[chan platform.Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan platform.Event, func()) {
	ch := make(chan platform.Event, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room for it.
func (h *Hub) Publish(ev platform.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
