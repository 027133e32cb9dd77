package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most capacity entries, dropping the least recently
// read or written one first. An entry older than ttl reads as a miss.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	index    map[string]*list.Element
	order    *list.List // front is most recent
}

var (
	_ Cache[int] = (*LRUCache[int])(nil)
	_ Cleaner    = (*LRUCache[int])(nil)
)

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func (e *entry[T]) expired(now time.Time) bool {
	return now.After(e.expires)
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[T]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// WithClock replaces the time source, for tests.
func (c *LRUCache[T]) WithClock(now func() time.Time) *LRUCache[T] {
	c.now = now
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if e.expired(c.now()) {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key with a fresh ttl, replacing any previous value.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// CleanExpired drops every expired entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[T]).expired(now) {
			c.drop(el)
			dropped++
		}
		el = prev
	}
	return dropped
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// drop removes el; the caller holds mu.
func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
