package events

import (
	"sync"

	"github.com/vadiminshakov/presalebot/internal/entity"
)

// SnapshotBroadcaster fans out chain snapshots to all subscribers via
// buffered channels. The API is intentionally small so call sites stay
// straightforward.
type SnapshotBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan entity.ChainSnapshot]struct{}
	buffer int
}

// NewSnapshotBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewSnapshotBroadcaster(buffer int) *SnapshotBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &SnapshotBroadcaster{
		subs:   make(map[chan entity.ChainSnapshot]struct{}),
		buffer: buffer,
	}
}

// Publish sends the snapshot to all subscribers, dropping if a reader is slow.
func (b *SnapshotBroadcaster) Publish(s entity.ChainSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives snapshots until Unsubscribe is called.
func (b *SnapshotBroadcaster) Subscribe() chan entity.ChainSnapshot {
	ch := make(chan entity.ChainSnapshot, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *SnapshotBroadcaster) Unsubscribe(ch chan entity.ChainSnapshot) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
