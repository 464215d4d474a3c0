// Package bridge exposes catalog sources over HTTP and WebSocket.
//
// Routes:
//
//	GET /sources         all current values as a JSON object
//	GET /sources/{name}  one value as {"name": ..., "value": ...}
//	PUT /sources/{name}  set a value from a JSON body
//	GET /ws              WebSocket stream of updates
//
// The Bridge is a gaze watcher over every catalog source. Each update is
// pushed to connected WebSocket clients as an "update" message. Clients
// may also send "set" messages to change a source.
package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
	"github.com/vango-dev/gaze/pkg/tracing"
)

// MaxBodyBytes limits PUT bodies and inbound WebSocket messages.
const MaxBodyBytes = 1 << 20

// DefaultWriteTimeout bounds a single WebSocket write. A client that cannot
// accept a frame within it is dropped.
const DefaultWriteTimeout = 10 * time.Second

// MessageType identifies a WebSocket message.
type MessageType string

const (
	MessageHello  MessageType = "hello"
	MessageUpdate MessageType = "update"
	MessageSet    MessageType = "set"
	MessageError  MessageType = "error"
)

// Message is exchanged with WebSocket clients.
type Message struct {
	Type   MessageType                `json:"type"`
	Name   string                     `json:"name,omitempty"`
	Value  json.RawMessage            `json:"value,omitempty"`
	Values map[string]json.RawMessage `json:"values,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// sourceValue is the body of GET /sources/{name}.
type sourceValue struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithTracer wraps every set in a span.
func WithTracer(t *tracing.Tracer) Option {
	return func(b *Bridge) {
		b.tracer = t
	}
}

// WithWriteTimeout sets the per-frame WebSocket write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.writeTimeout = d
	}
}

// SetObserver is called after a successful set made through the bridge,
// with the time the set and all of its watchers took.
type SetObserver func(subj gaze.Observable, d time.Duration)

// WithSetObserver registers fn to time every HTTP and WebSocket set.
func WithSetObserver(fn SetObserver) Option {
	return func(b *Bridge) {
		b.observe = fn
	}
}

// WithCheckOrigin overrides the WebSocket origin check.
// By default only same-origin requests are accepted.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(b *Bridge) {
		b.upgrader.CheckOrigin = fn
	}
}

// client serialises writes to one connection.
type client struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

// writeLocked must be called with c.mu held.
func (c *client) writeLocked(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Bridge serves catalog sources to HTTP and WebSocket clients.
type Bridge struct {
	*gaze.Watcher

	catalog      *catalog.Catalog
	tracer       *tracing.Tracer
	observe      SetObserver
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	clients map[*client]struct{}
	mu      sync.RWMutex
}

// New creates a bridge watching every source currently in c.
func New(c *catalog.Catalog, opts ...Option) *Bridge {
	b := &Bridge{
		catalog:      c,
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Watcher = gaze.NewWatcher(b.updated)
	b.Refresh()
	return b
}

// Refresh watches sources registered since the bridge was created.
func (b *Bridge) Refresh() {
	b.catalog.WatchAll(b.Watcher)
}

// Router returns the HTTP routes for the bridge.
func (b *Bridge) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/sources", b.handleList)
	r.Get("/sources/{name}", b.handleGet)
	r.Put("/sources/{name}", b.handlePut)
	r.Get("/ws", b.HandleWebSocket)
	return r
}

func (b *Bridge) handleList(w http.ResponseWriter, r *http.Request) {
	values, err := b.catalog.Snapshot()
	if err != nil {
		b.logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (b *Bridge) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, ok := b.catalog.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}
	value, err := e.MarshalValue()
	if err != nil {
		b.logger.Error("encode failed", "source", name, "error", err)
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	writeJSON(w, http.StatusOK, sourceValue{Name: name, Value: value})
}

func (b *Bridge) handlePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, ok := b.catalog.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := b.set(r.Context(), e, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocket upgrades the request and streams updates until the
// client disconnects.
func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(MaxBodyBytes)

	c := &client{conn: conn, timeout: b.writeTimeout}
	if err := b.register(c); err != nil {
		b.logger.Warn("websocket hello failed", "error", err)
		b.drop(c)
		return
	}
	defer b.drop(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				b.logger.Error("websocket read error", "error", err)
			}
			return
		}
		b.handleMessage(r, c, data)
	}
}

// register adds c and sends the hello frame before any update can reach it.
// The client is added before the values are read, so an update racing the
// hello is either in the hello or delivered right after it.
func (b *Bridge) register(c *client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	values, err := b.catalog.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.Marshal(Message{Type: MessageHello, Values: values})
	if err != nil {
		return err
	}
	return c.writeLocked(data)
}

func (b *Bridge) handleMessage(r *http.Request, c *client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		b.reply(c, Message{Type: MessageError, Error: "invalid message"})
		return
	}
	if msg.Type != MessageSet {
		b.reply(c, Message{Type: MessageError, Error: "unsupported message type"})
		return
	}

	e, ok := b.catalog.Lookup(msg.Name)
	if !ok {
		b.reply(c, Message{Type: MessageError, Name: msg.Name, Error: "unknown source"})
		return
	}
	if err := b.set(r.Context(), e, msg.Value); err != nil {
		b.reply(c, Message{Type: MessageError, Name: msg.Name, Error: err.Error()})
	}
}

// set decodes raw into e inside a span and reports its duration.
func (b *Bridge) set(ctx context.Context, e catalog.Entry, raw json.RawMessage) error {
	start := time.Now()
	if err := tracing.SetJSON(ctx, b.tracer, e, raw); err != nil {
		return err
	}
	if b.observe != nil {
		b.observe(e.Subject(), time.Since(start))
	}
	return nil
}

func (b *Bridge) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := c.write(data); err != nil {
		b.drop(c)
	}
}

// updated is the watcher handler; it forwards source changes to clients.
func (b *Bridge) updated(changed gaze.Observable) {
	e, ok := b.catalog.Find(changed)
	if !ok {
		return
	}
	value, err := e.MarshalValue()
	if err != nil {
		b.logger.Error("encode failed", "source", e.Name(), "error", err)
		return
	}
	b.broadcast(Message{Type: MessageUpdate, Name: e.Name(), Value: value})
}

// broadcast sends a message to all connected clients.
func (b *Bridge) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			b.logger.Debug("dropping websocket client", "error", err)
			b.drop(c)
		}
	}
}

func (b *Bridge) drop(c *client) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()

	c.conn.Close()
}

// ClientCount returns the number of connected WebSocket clients.
func (b *Bridge) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client and stops watching sources.
func (b *Bridge) Close() {
	b.Watcher.Close()

	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		c.conn.Close()
		delete(b.clients, c)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Message{Type: MessageError, Error: msg})
}
