// Package sse streams run progress and vault changes to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/starford/web2vault/internal/index"
	"github.com/starford/web2vault/internal/pipeline"
)

// Vault event types.
const (
	EventNoteCreated = "vault.note_created"
	EventNoteUpdated = "vault.note_updated"
	EventNoteDeleted = "vault.note_deleted"
)

const (
	defaultHistory   = 256
	defaultKeepAlive = 15 * time.Second
	clientBuffer     = 64
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

// Option configures a Broker.
type Option func(*Broker)

// WithHistory sets how many recent events are kept for replay to clients
// that reconnect with Last-Event-ID.
func WithHistory(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.historyMax = n
		}
	}
}

// WithKeepAlive sets the interval of comment pings on idle streams. LLM
// calls can run for minutes without progress events.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// Broker fans events out to connected clients and remembers the most
// recent ones so a client that connects after POST /api/runs started can
// still see the run from its first event.
type Broker struct {
	mu         sync.Mutex
	clients    map[chan []byte]struct{}
	history    []frame
	historyMax int
	seq        uint64
	closed     bool
	keepAlive  time.Duration
}

// NewBroker creates a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		clients:    make(map[chan []byte]struct{}),
		historyMax: defaultHistory,
		keepAlive:  defaultKeepAlive,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish sends an event to all connected clients. Slow clients whose
// buffer is full miss the event; they can resume with Last-Event-ID.
func (b *Broker) Publish(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.seq++
	f := frame{id: b.seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq, event.Type, payload))}
	if b.historyMax > 0 {
		b.history = append(b.history, f)
		if over := len(b.history) - b.historyMax; over > 0 {
			b.history = append(b.history[:0], b.history[over:]...)
		}
	}
	for ch := range b.clients {
		select {
		case ch <- f.raw:
		default:
		}
	}
}

// Emit forwards a pipeline progress event to all clients.
func (b *Broker) Emit(e pipeline.Event) {
	b.Publish(Event{Type: e.Type, Data: e})
}

var _ pipeline.Sink = (*Broker)(nil)

// PublishVaultChange publishes a watcher-reported note change. It matches
// index.EventCallback.
func (b *Broker) PublishVaultChange(kind, path string) {
	var typ string
	switch kind {
	case index.ChangeCreated:
		typ = EventNoteCreated
	case index.ChangeUpdated:
		typ = EventNoteUpdated
	case index.ChangeDeleted:
		typ = EventNoteDeleted
	default:
		return
	}
	b.Publish(Event{Type: typ, Data: map[string]string{"path": path}})
}

// Subscribe registers a client. When resume is true the returned backlog
// holds every retained event after lastID, oldest first.
func (b *Broker) Subscribe(lastID uint64, resume bool) (ch chan []byte, backlog [][]byte) {
	ch = make(chan []byte, clientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, nil
	}
	if resume {
		for _, f := range b.history {
			if f.id > lastID {
				backlog = append(backlog, f.raw)
			}
		}
	}
	b.clients[ch] = struct{}{}
	return ch, backlog
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client. Later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		close(ch)
	}
	clear(b.clients)
}

// lastEventID reads the resume point from the Last-Event-ID header (set by
// reconnecting browsers) or the last_event_id query parameter.
func lastEventID(r *http.Request) (uint64, bool) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	lastID, resume := lastEventID(r)
	ch, backlog := b.Subscribe(lastID, resume)
	defer b.Unsubscribe(ch)

	for _, msg := range backlog {
		_, _ = w.Write(msg)
	}
	flusher.Flush()

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
