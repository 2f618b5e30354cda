// Package realtime maintains the launcher's push event socket.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/retry"
	"github.com/vietddude/launcher/internal/core/sentinel"
	"github.com/vietddude/launcher/internal/metrics"
)

// ErrClosed means the client was shut down for good.
const ErrClosed = sentinel.Error("realtime client closed")

const (
	dialTimeout   = 10 * time.Second
	maxEventBytes = 1 << 20
)

// reconnectPolicy shapes the delay curve between reconnect attempts.
// Only Delay is used; the loop itself runs for as long as the user
// stays signed in.
var reconnectPolicy = retry.Policy{
	BaseDelay: time.Second,
	Growth:    retry.GrowthExponential,
	MaxDelay:  30 * time.Second,
}

// reconnectDelayCap bounds the exponent handed to Delay; past it the
// delay sits at MaxDelay anyway.
const reconnectDelayCap = 6

// TokenSource supplies a valid access token for the socket handshake.
type TokenSource func(ctx context.Context) (string, error)

// Event is one push message from the backend.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler consumes events. Handlers run on the read goroutine and must
// not block.
type Handler func(Event)

// Client keeps a websocket to the backend alive while a user is signed
// in: dial with a bearer token, dispatch incoming events, redial with
// growing delays after drops.
type Client struct {
	url      string
	tokens   TokenSource
	signedIn func() bool
	clock    clockwork.Clock
	log      *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	handlerMu sync.RWMutex
	handlers  []Handler
}

// NewClient creates the socket client. signedIn gates connecting and
// reconnecting; tokens supplies the bearer token per dial.
func NewClient(cfg config.RealtimeConfig, tokens TokenSource, signedIn func() bool, clock clockwork.Clock) *Client {
	return &Client{
		url:      cfg.URL,
		tokens:   tokens,
		signedIn: signedIn,
		clock:    clock,
		log:      slog.Default(),
	}
}

// OnEvent registers a handler for every incoming event.
func (c *Client) OnEvent(fn Handler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// Connect dials the socket and starts the read loop. Signed out means
// there is nothing to connect: the call is a quiet no-op and the
// sign-in hook connects later. Calling Connect while connected is a
// no-op too.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	if !c.signedIn() {
		c.log.Info("No session, realtime socket stays down")
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect realtime socket: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.started, c.cancel, c.done = true, cancel, done
	go c.run(runCtx, conn, done)

	c.log.Info("Realtime socket connected", "url", c.url)
	return nil
}

// Disconnect stops the loop and closes the socket. The client can
// Connect again afterwards; the sign-out listener uses this.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	c.log.Info("Realtime socket disconnected")
}

// Close shuts the client down for good.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Disconnect()
	return nil
}

// Connected reports whether the read loop is running.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, resp, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxEventBytes)
	return conn, nil
}

// run reads events until the connection drops, then keeps redialing
// until it is back, the context ends, or the user signs out.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer func() {
		if conn != nil {
			conn.CloseNow()
		}
	}()
	defer func() {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
	}()

	for {
		err := c.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("Realtime socket dropped", "error", err)
		conn.CloseNow()

		conn = c.redial(ctx)
		if conn == nil {
			return
		}
		metrics.RealtimeReconnects.Inc()
		c.log.Info("Realtime socket reconnected")
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Warn("Dropping malformed realtime event", "error", err)
			continue
		}
		c.dispatch(event)
	}
}

// redial retries the dial until it succeeds. Nil means stop for good:
// the context ended or the user signed out.
func (c *Client) redial(ctx context.Context) *websocket.Conn {
	for attempt := 0; ; {
		if !c.signedIn() {
			c.log.Info("Signed out, realtime socket stays down")
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(reconnectPolicy.Delay(attempt)):
		}
		if attempt < reconnectDelayCap {
			attempt++
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("Realtime reconnect failed", "error", err)
			continue
		}
		return conn
	}
}

func (c *Client) dispatch(event Event) {
	c.handlerMu.RLock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlerMu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}
