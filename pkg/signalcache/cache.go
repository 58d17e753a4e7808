// Package signalcache holds the most recently decoded value of every signal
// seen on the bus.
//
// The receive path writes, the actuation engine polls. Each key is updated
// atomically with last-write-wins semantics; there is no cross-key
// consistency and entries are never evicted by readers.
package signalcache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry is the latest decoded value of one signal.
type Entry struct {
	Timestamp time.Time
	Value     any
}

// Key renders the composite cache key "{message_id}:{signal}".
func Key(messageID uint32, signal string) string {
	return fmt.Sprintf("%d:%s", messageID, signal)
}

type key struct {
	id     uint32
	signal string
}

// Cache is a concurrent map of (message id, signal) to Entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]Entry

	// bySignal indexes message ids carrying each signal name.
	bySignal map[string]map[uint32]struct{}
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries:  make(map[key]Entry),
		bySignal: make(map[string]map[uint32]struct{}),
	}
}

// Update overwrites the entry for (messageID, signal). The caller guarantees
// arrival order, so no timestamp comparison is made.
func (c *Cache) Update(messageID uint32, signal string, value any, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key{messageID, signal}] = Entry{Timestamp: ts, Value: value}
	ids, ok := c.bySignal[signal]
	if !ok {
		ids = make(map[uint32]struct{})
		c.bySignal[signal] = ids
	}
	ids[messageID] = struct{}{}
}

// GetLatest returns the entry for (messageID, signal).
func (c *Cache) GetLatest(messageID uint32, signal string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key{messageID, signal}]
	return e, ok
}

// LatestBySignal returns the most recent entry among all messages carrying
// signal, along with the message id it came from.
func (c *Cache) LatestBySignal(signal string) (uint32, Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		bestID uint32
		best   Entry
		found  bool
	)
	for id := range c.bySignal[signal] {
		e := c.entries[key{id, signal}]
		if !found || e.Timestamp.After(best.Timestamp) {
			bestID, best, found = id, e, true
		}
	}
	return bestID, best, found
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SnapshotEntry is one row of a Snapshot.
type SnapshotEntry struct {
	MessageID uint32
	Signal    string
	Entry
}

// Snapshot returns a copy of all entries sorted by message id, then signal.
func (c *Cache) Snapshot() []SnapshotEntry {
	c.mu.RLock()
	out := make([]SnapshotEntry, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, SnapshotEntry{MessageID: k.id, Signal: k.signal, Entry: e})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageID != out[j].MessageID {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].Signal < out[j].Signal
	})
	return out
}
