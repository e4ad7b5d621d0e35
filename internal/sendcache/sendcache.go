// Package sendcache holds the sender side of a block transfer: a bounded
// cache of (filename, index) -> (payload, digest) kept so that a
// CORRUPTED_BLOCK retransmit request can be served without re-reading
// and re-splitting the file from disk. Built as a plain mutex-guarded
// map plus an LRU eviction list using container/list.
package sendcache

import (
	"container/list"
	"fmt"
	"sync"
)

// Entry is one cached block, ready to be resent verbatim.
type Entry struct {
	Payload []byte
	Digest  string
}

type key struct {
	filename string
	index    int
}

// Cache is a bounded, LRU-evicted store of recently sent blocks.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[key]*list.Element
	order    *list.List // front = most recently used
}

type node struct {
	key   key
	entry Entry
}

// New returns a Cache holding at most capacity blocks. A non-positive
// capacity means unbounded.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[key]*list.Element),
		order:    list.New(),
	}
}

// Put stores or refreshes a block, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(filename string, index int, payload []byte, digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{filename, index}
	if el, ok := c.entries[k]; ok {
		el.Value.(*node).entry = Entry{Payload: payload, Digest: digest}
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&node{key: k, entry: Entry{Payload: payload, Digest: digest}})
	c.entries[k] = el

	if c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*node).key)
		}
	}
}

// Get retrieves a cached block, marking it most-recently-used.
func (c *Cache) Get(filename string, index int) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key{filename, index}]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*node).entry, true
}

// ErrEvicted is returned by MustGet when the requested block has been
// evicted from the cache; the caller must treat this as a permanent
// failure for that retransmit request.
type ErrEvicted struct {
	Filename string
	Index    int
}

func (e *ErrEvicted) Error() string {
	return fmt.Sprintf("sendcache: block %s/%d evicted from cache", e.Filename, e.Index)
}

// MustGet retrieves a cached block or returns ErrEvicted.
func (c *Cache) MustGet(filename string, index int) (Entry, error) {
	e, ok := c.Get(filename, index)
	if !ok {
		return Entry{}, &ErrEvicted{Filename: filename, Index: index}
	}
	return e, nil
}

// DropFile removes every cached block belonging to filename. Completion
// never relays back to the original sender -- DONE only flows
// node->tracker -- so nothing in this module calls DropFile
// automatically; eviction relies on the LRU bound instead. It is kept as
// the explicit release path a future tracker-relayed completion notice
// would call.
func (c *Cache) DropFile(filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, el := range c.entries {
		if k.filename == filename {
			c.order.Remove(el)
			delete(c.entries, k)
		}
	}
}

// Len reports the number of cached blocks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
