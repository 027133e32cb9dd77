package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"salvadanaio/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLRUCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, 10*time.Minute).WithClock(clock.now)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	clock.t = clock.t.Add(11 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_OverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("a", 2)
	got, _ := c.Get("a")
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 0, c.Size())
}

func TestManager_CleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("c", 3)
	clock.t = clock.t.Add(45 * time.Second)

	m := NewManager(log.Discard())
	m.Register(c)

	assert.Equal(t, 2, m.CleanAll())
	assert.Equal(t, 1, c.Size())
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := NewManager(log.Discard())
	m.Register(NewLRUCache[int](1, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
