// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/sampler"
)

const (
	clientBacklog = 8
	writeTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// StatusProvider is what the web endpoints read from the acquisition loop.
type StatusProvider interface {
	Stats() sampler.Stats
	Latest() (Window, bool)
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans windows out to websocket clients. Clients that fall behind
// lose windows rather than stalling acquisition.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*wsClient]struct{})}
}

// Consume queues w for every connected client without blocking.
func (h *Hub) Consume(_ context.Context, w Window) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Debug("websocket client behind, dropping window", zap.Uint64("seq", w.Seq))
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams windows until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBacklog)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go func() {
		// reads only detect the close; clients send nothing
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
		h.log.Info("websocket client disconnected", zap.String("remote", r.RemoteAddr))
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}

// NewWebHandler serves:
//
//	/ws/window     live windows over websocket
//	/api/window    latest window as JSON (503 until the first one)
//	/api/status    sampler counters as JSON
func NewWebHandler(hub *Hub, status StatusProvider, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/window", hub.ServeWS)

	mux.HandleFunc("/api/window", func(w http.ResponseWriter, r *http.Request) {
		latest, ok := status.Latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, latest, log)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, struct {
			sampler.Stats
			Clients int `json:"clients"`
		}{status.Stats(), hub.Clients()}, log)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("json encode error", zap.Error(err))
	}
}
