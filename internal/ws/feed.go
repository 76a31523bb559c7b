package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mesen-mcp/backend/internal/stream"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Feed pushes change-record batches and periodic status snapshots to
// connected WebSocket clients. Records arrive via the sampler's notify tap
// and are flushed on a throttle timer so a busy tick does not turn into a
// message per record. Clients that cannot keep up are disconnected.
type Feed struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	maxClients int

	throttle     time.Duration
	statusFn     func() StatusPayload
	statusTicker *time.Ticker

	flushMu    sync.Mutex
	pending    []stream.Record
	flushTimer *time.Timer
}

// NewFeed creates the feed. statusFn supplies the payload for the initial
// message and the periodic snapshot; maxClients of zero means unlimited.
func NewFeed(throttle, statusInterval time.Duration, maxClients int, statusFn func() StatusPayload) *Feed {
	f := &Feed{
		clients:    make(map[*client]bool),
		maxClients: maxClients,
		throttle:   throttle,
		statusFn:   statusFn,
	}
	f.statusTicker = time.NewTicker(statusInterval)
	go f.statusLoop()
	return f
}

// AddClient registers a connection and sends it an immediate status
// snapshot. Returns nil when the client limit is reached; the caller owns
// closing the rejected connection.
func (f *Feed) AddClient(conn *websocket.Conn) *client {
	f.mu.Lock()
	if f.maxClients > 0 && len(f.clients) >= f.maxClients {
		f.mu.Unlock()
		return nil
	}
	c := newClient(conn)
	f.clients[c] = true
	f.mu.Unlock()

	data, _ := json.Marshal(WSMessage{Type: MsgStatus, Payload: f.statusFn()})
	select {
	case c.send <- data:
	default:
	}
	return c
}

func (f *Feed) RemoveClient(c *client) {
	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.close()
	}
	f.mu.Unlock()
}

// QueueRecords buffers admitted records and arms the flush timer. This is
// the sampler's notify tap; it must not block the tick.
func (f *Feed) QueueRecords(records []stream.Record) {
	if len(records) == 0 {
		return
	}
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.pending = append(f.pending, records...)
	if f.flushTimer == nil {
		f.flushTimer = time.AfterFunc(f.throttle, f.flush)
	}
}

func (f *Feed) flush() {
	f.flushMu.Lock()
	records := f.pending
	f.pending = nil
	f.flushTimer = nil
	f.flushMu.Unlock()

	if len(records) == 0 {
		return
	}
	f.broadcast(WSMessage{Type: MsgChanges, Payload: ChangesPayload{Records: records}})
}

func (f *Feed) statusLoop() {
	for range f.statusTicker.C {
		f.broadcast(WSMessage{Type: MsgStatus, Payload: f.statusFn()})
	}
}

func (f *Feed) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[ws] broadcast marshal error: %v", err)
		return
	}

	f.mu.RLock()
	clients := make([]*client, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[ws] client too slow, disconnecting")
			f.RemoveClient(c)
		}
	}
}

func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Stop halts the status loop. Connected clients are left to their handlers.
func (f *Feed) Stop() {
	f.statusTicker.Stop()
}
