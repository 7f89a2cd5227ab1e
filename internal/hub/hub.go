// Package hub streams service events to browsers over Server-Sent Events.
//
// Every broadcast gets a sequence number sent as the SSE id. The hub keeps
// the most recent messages so a client reconnecting with Last-Event-ID
// receives what it missed.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultReplay is the number of messages kept for reconnecting clients
const DefaultReplay = 64

// Named is implemented by events that carry an SSE event name
type Named interface {
	EventName() string
}

// message is one encoded SSE frame
type message struct {
	id    uint64
	frame []byte
}

// Client represents a connected SSE client
type Client struct {
	id     string
	lastID uint64
	events chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan any
	done       chan struct{}
	logger     *zap.Logger

	// owned by Run
	seq     uint64
	history []message
	replay  int

	keepAlive time.Duration
}

// New creates a new Hub
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan any, 256),
		done:       make(chan struct{}),
		logger:     logger,
		replay:     DefaultReplay,
		keepAlive:  30 * time.Second,
	}
}

// Run starts the hub's event loop and returns when ctx is cancelled.
// Connected clients are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			missed := h.replayFor(client)
			h.mu.Lock()
			h.clients[client] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client connected",
				zap.String("client", client.id),
				zap.Int("replayed", missed),
				zap.Int("total", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client disconnected", zap.String("client", client.id), zap.Int("total", n))

		case event := <-h.broadcast:
			msg, err := h.encode(event)
			if err != nil {
				h.logger.Warn("failed to marshal event", zap.Error(err))
				continue
			}
			h.remember(msg)

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- msg.frame:
				default:
					h.logger.Debug("SSE client is slow, skipping message",
						zap.String("client", client.id),
						zap.Uint64("event_id", msg.id))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return
		}
	}
}

// encode assigns the next id and renders the SSE frame
func (h *Hub) encode(event any) (message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return message{}, err
	}

	h.seq++
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(h.seq, 10))
	buf.WriteByte('\n')
	if named, ok := event.(Named); ok && named.EventName() != "" {
		buf.WriteString("event: ")
		buf.WriteString(named.EventName())
		buf.WriteByte('\n')
	}
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")

	return message{id: h.seq, frame: buf.Bytes()}, nil
}

func (h *Hub) remember(msg message) {
	if h.replay <= 0 {
		return
	}
	h.history = append(h.history, msg)
	if over := len(h.history) - h.replay; over > 0 {
		h.history = append(h.history[:0], h.history[over:]...)
	}
}

// replayFor queues the kept messages newer than the client's last id
func (h *Hub) replayFor(client *Client) int {
	if client.lastID == 0 {
		return 0
	}
	n := 0
	for _, msg := range h.history {
		if msg.id <= client.lastID {
			continue
		}
		select {
		case client.events <- msg.frame:
			n++
		default:
			return n
		}
	}
	return n
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event any) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event")
	}
}

// Forward broadcasts every value received on events until the channel is
// closed or ctx is cancelled
func Forward[T any](ctx context.Context, h *Hub, events <-chan T) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		case <-ctx.Done():
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, max(h.replay, 64)),
	}
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		lastID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
			return
		}
		client.lastID = lastID
	}

	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
