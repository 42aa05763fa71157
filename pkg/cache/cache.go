// Package cache provides a thread-safe LRU cache for parsed Rei programs.
//
// A session with caching enabled avoids re-tokenizing and re-parsing the same
// source text on every call, which matters for REPL history replays and for
// hosts that evaluate a fixed set of snippets repeatedly. Entries are keyed by
// the 64-bit FNV-1a hash of the source.
//
// # Example
//
//	c := cache.New(1024)
//	prog, err := c.GetOrParse(src, func() (*types.Program, error) {
//	    return parser.Parse(src)
//	})
package cache

import (
	"container/list"
	"sync"

	"github.com/segmentio/fasthash/fnv1a"

	"github.com/sandrolain/gorei/pkg/types"
)

// Key returns the cache key of a source text.
func Key(src string) uint64 {
	return fnv1a.HashString64(src)
}

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key    uint64
	source string
	prog   *types.Program
}

// Cache is a thread-safe LRU (Least Recently Used) cache for parsed programs.
// Once the capacity is reached, the least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Get retrieves a parsed program from the cache.
// Returns (prog, true) if found and moves the entry to front (MRU).
// A hash collision with a different source is reported as a miss.
func (c *Cache) Get(src string) (*types.Program, bool) {
	key := Key(src)
	c.mu.RLock()
	el, ok := c.items[key]
	// if the element is already at the front, skip the write lock entirely.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !alreadyFront {
		// Promote to front under write lock; re-check in case of concurrent eviction.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			return nil, false
		}
	}
	ent := el.Value.(*entry)
	if ent.source != src {
		return nil, false
	}
	return ent.prog, true
}

// Set inserts or replaces a program in the cache.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache) Set(src string, prog *types.Program) {
	key := Key(src)
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry)
		ent.source = src
		ent.prog = prog
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, source: src, prog: prog})
	c.items[key] = el
}

// GetOrParse retrieves the program for src from cache, or calls parse()
// to create it, caches the result, and returns it.
// Parse errors are not cached.
func (c *Cache) GetOrParse(src string, parse func() (*types.Program, error)) (*types.Program, error) {
	if prog, ok := c.Get(src); ok {
		return prog, nil
	}
	prog, err := parse()
	if err != nil {
		return nil, err
	}
	c.Set(src, prog)
	return prog, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes the entry for src from the cache.
func (c *Cache) Invalidate(src string) {
	key := Key(src)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[uint64]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
