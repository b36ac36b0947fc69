// Package protect is the public facade over the UniFi Protect state
// synchronization engine: construction, connect/close, bootstrap
// snapshot access, subscriptions, and typed device setters. It wires
// together internal/httpapi, internal/wsconn, internal/diff,
// internal/mutation, internal/notify, internal/config, internal/metrics,
// internal/cache, and internal/model — grounded on the teacher's
// cmd/server/main.go composition root, inverted for a client
// constructor (the teacher wires DB → auth → stream → HTTP server; this
// wires HTTP session → WebSocket session → diff engine → subscribers).
package protect

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/config"
	"github.com/lumenvue/protectclient/internal/diff"
	"github.com/lumenvue/protectclient/internal/httpapi"
	"github.com/lumenvue/protectclient/internal/metrics"
	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/mutation"
	"github.com/lumenvue/protectclient/internal/notify"
	"github.com/lumenvue/protectclient/internal/wire"
	"github.com/lumenvue/protectclient/internal/wsconn"
)

// Client is the single entry point for a controller session. One
// Client owns one WebSocket reader goroutine (internal/wsconn.Conn),
// one Bootstrap graph (internal/model), and the supporting collaborators
// that apply packets to it and let callers mutate it back.
type Client struct {
	cfg config.Config

	http     *httpapi.Session
	conn     *wsconn.Conn
	hub      *notify.Hub
	ignore   *mutation.IgnoreTable
	buffer   *mutation.Buffer
	parsers  *cache.Parsers
	metrics  *metrics.Collector

	mu        sync.RWMutex
	bootstrap *model.Bootstrap
	engine    *diff.Engine

	keyWatcher *config.APIKeyWatcher

	runCtx      context.Context
	runCancel   context.CancelFunc
	runDone     chan struct{}
	signalReady func(error)
}

// Option configures optional Client behavior at construction.
type Option func(*Client)

// WithBridge attaches a notify.Bridge (e.g. the optional NATS bridge)
// to the message channel. Off by default (spec.md §4.6 is in-process
// only unless a bridge is supplied).
func WithBridge(b notify.Bridge) Option {
	return func(c *Client) { c.hub = notify.NewHub(b) }
}

// WithMetrics attaches a Collector the client will report its
// operational counters to. A Client built without this option still
// works; its Observe* calls are simply no-ops via an internal nil
// check.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a Client from cfg without connecting. Call Connect to
// start the session.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if cfg.Address == "" {
		return nil, &StateError{Op: "New", Reason: "config.Address is required"}
	}

	creds := httpapi.Credentials{Username: cfg.Username, Password: cfg.Password, APIKey: cfg.APIKey}
	baseURL := fmt.Sprintf("https://%s:%d", cfg.Address, cfg.Port)
	session, err := httpapi.NewSession(baseURL, creds, !cfg.SSLVerify)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		http:    session,
		hub:     notify.NewHub(nil),
		ignore:  mutation.NewIgnoreTable(cfg.EchoSuppressTTL),
		buffer:  mutation.NewBuffer(),
		parsers: cache.NewParsers(0),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.UsesAPIKeyFile() {
		w, err := config.NewAPIKeyWatcher(cfg.APIKeyFilePath(), func(key string) {
			c.http.SetAPIKey(key)
			log.Printf("[client] api key reloaded from %s", cfg.APIKeyFilePath())
		})
		if err != nil {
			return nil, err
		}
		c.keyWatcher = w
		c.http.SetAPIKey(w.Current())
	}

	c.conn = wsconn.New(c.http, c.onState, c.onBootstrap, c.onPacket)
	c.conn.OnStreamError(func(e *wsconn.StreamError) {
		log.Printf("[ws] %v", e)
	})

	return c, nil
}

// Connect starts the WebSocket session: login, bootstrap fetch, dial,
// and the reader loop, all run on a background goroutine until ctx is
// canceled or Close is called. Connect returns once the first
// bootstrap has loaded, or the initial login/bootstrap fetch fails.
func (c *Client) Connect(ctx context.Context) error {
	if c.runCancel != nil {
		return &StateError{Op: "Connect", Reason: "already connected"}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.runCtx = runCtx
	c.runCancel = cancel
	c.runDone = make(chan struct{})

	if c.keyWatcher != nil {
		c.keyWatcher.Start(runCtx)
	}

	bootReady := make(chan error, 1)
	var once sync.Once
	c.signalReady = func(err error) {
		once.Do(func() { bootReady <- err })
	}

	go func() {
		defer close(c.runDone)
		err := c.conn.Run(runCtx)
		c.signalReady(err)
		if err != nil && runCtx.Err() == nil {
			log.Printf("[client] session ended: %v", err)
		}
	}()

	select {
	case err := <-bootReady:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onState republishes wsconn transitions on the state-notification
// channel as plain strings (spec.md §4.6), and, when a Collector is
// attached, updates the session-state gauge and the reconnect counter.
func (c *Client) onState(t wsconn.Transition) {
	c.hub.PublishState(string(t.To))
	if c.metrics != nil {
		known := []string{
			string(wsconn.StateIdle), string(wsconn.StateAuthenticating),
			string(wsconn.StateBootstrapping), string(wsconn.StateConnecting),
			string(wsconn.StateConnected), string(wsconn.StateReconnecting),
			string(wsconn.StateClosing), string(wsconn.StateClosed), string(wsconn.StateFailed),
		}
		c.metrics.ObserveSessionState(string(t.To), known)
		if t.To == wsconn.StateReconnecting {
			c.metrics.ObserveReconnect()
		}
	}
}

// onBootstrap replaces the entire graph atomically (invariant 5),
// rebuilding the diff engine around it, and publishes the synthetic
// `reset` notification the contract requires before any new object
// notifications (spec.md §8: "exactly one reset notification precedes
// all new object notifications").
func (c *Client) onBootstrap(raw []byte) {
	b, err := model.ParseBootstrap(raw, c.parsers)
	if err != nil {
		log.Printf("[client] bootstrap parse failed: %v", err)
		if c.signalReady != nil {
			c.signalReady(err)
		}
		return
	}

	e := diff.New(b, c.ignore, c.hub, c.parsers)
	if c.cfg.RingResetTimeout > 0 {
		e.RingResetTimeout = c.cfg.RingResetTimeout
	}
	e.OnDivergence = func() {
		log.Printf("[diff] divergence threshold crossed, triggering re-bootstrap")
		go c.refresh()
	}

	c.mu.Lock()
	old := c.engine
	c.bootstrap = b
	c.engine = e
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	c.hub.Reset()
	if c.signalReady != nil {
		c.signalReady(nil)
	}
}

// refresh forces a full bootstrap re-fetch, used both by explicit
// caller request and by the divergence-threshold trigger (spec.md §3
// lifecycle: "replaced wholesale on explicit refresh() or on
// unrecoverable stream divergence").
func (c *Client) refresh() {
	raw, err := c.http.FetchBootstrap(context.Background())
	if err != nil {
		log.Printf("[client] refresh fetch failed: %v", err)
		return
	}
	c.onBootstrap(raw)
}

// Refresh forces a full bootstrap re-fetch and graph replacement.
func (c *Client) Refresh(ctx context.Context) error {
	raw, err := c.http.FetchBootstrap(ctx)
	if err != nil {
		return err
	}
	c.onBootstrap(raw)
	return nil
}

// onPacket is the wsconn.PacketHandler: apply pkt to the current engine.
// A non-nil error here is a dropped packet (spec.md §7 ProtocolError
// disposition: log, drop, continue) and never propagates back to the
// reader loop.
func (c *Client) onPacket(pkt *wire.Packet) {
	c.mu.RLock()
	e := c.engine
	c.mu.RUnlock()
	if e == nil {
		return
	}
	if err := e.Apply(pkt); err != nil {
		log.Printf("[diff] %v", err)
		if c.metrics != nil {
			c.metrics.ObservePacketDropped("apply-error")
		}
		return
	}
	if c.metrics != nil {
		c.metrics.ObservePacketApplied(pkt.Header.ModelKey, pkt.Header.Action)
	}
}

// Bootstrap returns the current bootstrap graph, or nil before the first
// load. Its contents are mutated by the reader goroutine; use its
// accessor methods (RLock-guarded) rather than reading fields directly.
// A refresh or re-bootstrap installs a new graph, after which a pointer
// returned earlier is no longer updated.
func (c *Client) Bootstrap() *model.Bootstrap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bootstrap
}

// SubscribeState registers a connection-state subscriber (spec.md
// §4.6).
func (c *Client) SubscribeState() *notify.StateSubscription {
	return c.hub.SubscribeState()
}

// Subscribe registers an applied-packet subscriber, invoked
// synchronously in apply order from the reader goroutine (spec.md
// §4.6). Subscribers must not block.
func (c *Client) Subscribe(fn func(notify.Message)) *notify.MessageSubscription {
	return c.hub.Subscribe(fn)
}

// Close cancels the reader goroutine, stops the API-key watcher and any
// pending ring-reset timers, and waits for the reader to exit.
func (c *Client) Close() {
	if c.runCancel == nil {
		return
	}
	c.conn.Close()
	c.runCancel()
	<-c.runDone

	c.mu.Lock()
	if c.engine != nil {
		c.engine.Close()
	}
	c.mu.Unlock()
}

// State returns the session's current connection state.
func (c *Client) State() wsconn.State {
	return c.conn.State()
}
