// Package history keeps the bounded per-agent conversation record.
package history

import (
	"sync"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// DefaultLimit is the number of interactions retained per agent.
const DefaultLimit = 50

// Buffer is an append-only FIFO of conversation entries, truncated to a
// fixed limit. Append and truncate are atomic with respect to concurrent
// appends on the same buffer.
type Buffer struct {
	mu      sync.Mutex
	limit   int
	entries []contractx.ConversationEntry
}

// NewBuffer returns a buffer holding at most limit entries. A non-positive
// limit falls back to DefaultLimit.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{limit: limit}
}

// Append records one entry, silently dropping the oldest when full.
func (b *Buffer) Append(entry contractx.ConversationEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	if len(b.entries) > b.limit {
		overflow := len(b.entries) - b.limit
		b.entries = append(b.entries[:0], b.entries[overflow:]...)
	}
}

// Len reports the current number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a copy of the retained entries in insertion order.
func (b *Buffer) Entries() []contractx.ConversationEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contractx.ConversationEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Last returns the newest entry, if any.
func (b *Buffer) Last() (contractx.ConversationEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return contractx.ConversationEntry{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Recent returns a copy of the newest n entries in insertion order.
func (b *Buffer) Recent(n int) []contractx.ConversationEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.entries) == 0 {
		return nil
	}
	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]contractx.ConversationEntry, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}
