package wsconn

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumenvue/protectclient/internal/wire"
)

// Authenticator is the minimal surface wsconn needs from
// internal/httpapi: perform (or re-perform) the login flow and fetch
// the bootstrap bytes, both over the same cookie jar the WebSocket dial
// will reuse.
type Authenticator interface {
	Login(ctx context.Context) error
	FetchBootstrap(ctx context.Context) ([]byte, error)
	CookieJar() http.CookieJar
	WebSocketURL(lastUpdateID string) string
}

// PacketHandler is invoked once per decoded packet, on the reader
// goroutine, with no intermediate queue (spec.md §4.3: "no intermediate
// queue is required for correctness").
type PacketHandler func(*wire.Packet)

// StreamError reports a WebSocket closed unexpectedly (spec.md §7):
// local recovery is preferred, so this never aborts the session — Run
// logs it and reconnects. Surfaced to callers only via the optional
// OnStreamError hook, for diagnostics.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return fmt.Sprintf("wsconn: stream closed: %v", e.Err) }
func (e *StreamError) Unwrap() error { return e.Err }

// Conn owns one WebSocket session's lifecycle: auth, bootstrap fetch,
// dial, reader loop, and reconnection.
type Conn struct {
	auth         Authenticator
	onState      func(Transition)
	onBoot       func([]byte)
	onPkt        PacketHandler
	onStreamErr  func(*StreamError)

	dialer *websocket.Dialer
	sm     *stateMachine
	bo     *backoff

	cancel context.CancelFunc
}

// New builds a Conn. onState/onBoot/onPkt may be nil.
func New(auth Authenticator, onState func(Transition), onBoot func([]byte), onPkt PacketHandler) *Conn {
	return &Conn{
		auth:    auth,
		onState: onState,
		onBoot:  onBoot,
		onPkt:   onPkt,
		dialer:  &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		sm:      newStateMachine(),
		bo:      newBackoff(),
	}
}

// OnStreamError registers a diagnostic hook invoked whenever the
// WebSocket read loop ends unexpectedly (not via Close). A later call
// replaces the hook; fn may be nil to clear it.
func (c *Conn) OnStreamError(fn func(*StreamError)) {
	c.onStreamErr = fn
}

func (c *Conn) move(to State) {
	t, err := c.sm.move(to)
	if err != nil {
		log.Printf("wsconn: %v", err)
		return
	}
	if c.onState != nil {
		c.onState(t)
	}
}

// Run drives the session to connected and keeps it there, reconnecting
// per spec.md §4.3 until ctx is canceled (Close). It returns early,
// after moving to failed, when a login or bootstrap fetch fails.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	var lastUpdateID string
	needsAuth := true
	for {
		if ctx.Err() != nil {
			c.move(StateClosing)
			c.move(StateClosed)
			return ctx.Err()
		}

		if needsAuth {
			c.move(StateAuthenticating)
			if err := c.auth.Login(ctx); err != nil {
				c.move(StateFailed)
				return fmt.Errorf("wsconn: login: %w", err)
			}

			c.move(StateBootstrapping)
			bootBytes, err := c.auth.FetchBootstrap(ctx)
			if err != nil {
				c.move(StateFailed)
				return fmt.Errorf("wsconn: fetch bootstrap: %w", err)
			}
			if c.onBoot != nil {
				c.onBoot(bootBytes)
			}
		}

		// A resumed session (needsAuth false) moves straight from
		// reconnecting to connecting, skipping re-auth/re-bootstrap, per
		// the reconnecting->connecting edge in spec.md §4.3's table.
		c.move(StateConnecting)
		conn, err := c.dial(ctx, lastUpdateID)
		if err != nil {
			c.move(StateReconnecting)
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			needsAuth = true
			continue
		}

		c.move(StateConnected)
		c.bo.Reset()

		lastUpdateID, err = c.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			c.move(StateClosing)
			c.move(StateClosed)
			return ctx.Err()
		}

		if err != nil && c.onStreamErr != nil {
			c.onStreamErr(&StreamError{Err: err})
		}

		// On any read error, reconnect. A policy-violation close frame
		// is treated as an expired session; go all the way back through
		// login. Any other stream error resumes the session without
		// re-auth.
		c.move(StateReconnecting)
		if !c.sleep(ctx) {
			return ctx.Err()
		}
		needsAuth = isAuthError(err)
	}
}

func isAuthError(err error) bool {
	ce, ok := err.(*websocket.CloseError)
	return ok && ce.Code == websocket.ClosePolicyViolation
}

func (c *Conn) sleep(ctx context.Context) bool {
	select {
	case <-time.After(c.bo.Next()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Conn) dial(ctx context.Context, lastUpdateID string) (*websocket.Conn, error) {
	u := c.auth.WebSocketURL(lastUpdateID)
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	c.dialer.Jar = c.auth.CookieJar()

	conn, _, err := c.dialer.DialContext(ctx, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial: %w", err)
	}
	return conn, nil
}

// readLoop is the single cooperative reader: it performs only the
// WebSocket read itself as blocking I/O, decodes, and dispatches
// synchronously on this same goroutine (spec.md §4.3). Returns the
// last applied update id observed and the error that ended the loop.
func (c *Conn) readLoop(ctx context.Context, conn *websocket.Conn) (string, error) {
	var lastUpdateID string
	for {
		if ctx.Err() != nil {
			return lastUpdateID, ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return lastUpdateID, err
		}

		pkt, err := wire.DecodePacket(data)
		if err != nil {
			log.Printf("wsconn: malformed packet dropped: %v", err)
			continue
		}
		if pkt.Header.NewUpdateID != "" {
			lastUpdateID = pkt.Header.NewUpdateID
		}
		if c.onPkt != nil {
			c.onPkt(pkt)
		}
	}
}

// Close cooperatively stops the session: Run's loop checks ctx between
// messages and after the next read error.
func (c *Conn) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// State returns the current session state, safe to call from any
// goroutine: the state machine guards its current state with a mutex,
// so callers observe either the old or the new state.
func (c *Conn) State() State { return c.sm.get() }
