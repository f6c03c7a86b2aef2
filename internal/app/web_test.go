package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/sampler"
)

type staticStatus struct {
	stats  sampler.Stats
	latest *Window
}

func (s staticStatus) Stats() sampler.Stats { return s.stats }

func (s staticStatus) Latest() (Window, bool) {
	if s.latest == nil {
		return Window{}, false
	}
	return *s.latest, true
}

func TestWebStatusAndLatest(t *testing.T) {
	hub := NewHub(zap.NewNop())
	status := staticStatus{stats: sampler.Stats{Raw: 10, Accepted: 5, Filled: 5, Factor: 2, Capacity: 300}}
	srv := httptest.NewServer(NewWebHandler(hub, status, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/window")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 10.0, body["raw"])
	assert.Equal(t, 5.0, body["accepted"])
	assert.Equal(t, 5.0, body["filled"])
	assert.Equal(t, 0.0, body["clients"])
}

func TestWebLatestWindow(t *testing.T) {
	w := &Window{Seq: 3, Samples: []float32{1, 2, 3}}
	srv := httptest.NewServer(NewWebHandler(NewHub(zap.NewNop()), staticStatus{latest: w}, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/window")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got Window
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, uint64(3), got.Seq)
}

func TestHubStreamsWindows(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(NewWebHandler(hub, staticStatus{}, zap.NewNop()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/window"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, hub.Consume(context.Background(), Window{Seq: 42, Samples: []float32{0, 0, 9.8}}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Window
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(42), got.Seq)
	assert.Equal(t, []float32{0, 0, 9.8}, got.Samples)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, time.Millisecond)
}

func TestHubWithoutClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	require.NoError(t, hub.Consume(context.Background(), Window{Seq: 1}))
	assert.Zero(t, hub.Clients())
}
