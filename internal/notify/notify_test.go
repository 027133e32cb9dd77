package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()
	_, ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Notify(context.Background(), core.Info("Income added", "ok"))

	select {
	case event := <-ch:
		assert.Equal(t, EventOutcome, event.Type)
		assert.False(t, event.Timestamp.IsZero())
		o, ok := event.Data.(core.Outcome)
		require.True(t, ok)
		assert.Equal(t, "Income added", o.Title)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	id1, ch, unsubscribe := hub.Subscribe()
	id2, _, unsubscribe2 := hub.Subscribe()
	defer unsubscribe2()

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, hub.Subscribers())

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok, "expected channel to be closed")
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, _, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: "tick"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestMultiAndLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})

	var got []core.Outcome
	m := Multi{
		NewLogNotifier(logger),
		nil,
		Func(func(_ context.Context, o core.Outcome) { got = append(got, o) }),
	}
	m.Notify(context.Background(), core.Failure("Insufficient funds", "short"))

	require.Len(t, got, 1)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "component=notify")
	assert.Contains(t, buf.String(), `msg="Insufficient funds"`)
}
