package stream

import "sync"

// Buffer is a FIFO of text fragments waiting to be flushed. It is safe for
// concurrent use: Offer may race with DrainAll, and every fragment lands in
// exactly one drained batch.
type Buffer struct {
	mu    sync.Mutex
	items []string
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Offer enqueues fragment.
func (b *Buffer) Offer(fragment string) {
	b.mu.Lock()
	b.items = append(b.items, fragment)
	b.mu.Unlock()
}

// DrainAll removes and returns every queued fragment in arrival order. It
// returns nil when the buffer is empty.
func (b *Buffer) DrainAll() []string {
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()
	return items
}

// IsEmpty reports whether the buffer held no fragments at the time of the
// call. The answer may be stale by the time the caller acts on it.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) == 0
}

// Len returns the number of queued fragments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
