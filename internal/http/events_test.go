package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
	"salvadanaio/internal/notify"
)

// readEvent returns the next "event:" name and its data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, notify.EventConnected, name)
	assert.Contains(t, data, "subscriberId")
	assert.Equal(t, 1, env.hub.Subscribers())

	post, err := http.Post(ts.URL+"/api/income", "application/json", strings.NewReader(`{"amount":"25"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	name, data = readEvent(t, reader)
	assert.Equal(t, notify.EventOutcome, name)
	assert.Contains(t, data, "Income added")
}

func TestEventsStreamEndsOnShutdown(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, notify.EventConnected, name)

	require.NoError(t, env.srv.Shutdown(context.Background()))

	// The handler returns and the stream reaches EOF.
	_, err = reader.ReadString('\n')
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return env.hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	env.hub.Notify(context.Background(), core.Info("late", "nobody listens"))
}
