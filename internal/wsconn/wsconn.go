// Package wsconn provides a WebSocket client with reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/internal/apperror"
)

const meterName = "github.com/fd1az/swap-router/internal/wsconn"

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // used in metrics and errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int           // 0 = infinite
	PingInterval   time.Duration // 0 disables pings
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = no per-read deadline
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every inbound message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is told about every state transition and its cause.
type StateHandler func(state State, err error)

type clientMetrics struct {
	messages   metric.Int64Counter
	reconnects metric.Int64Counter
	errors     metric.Int64Counter
}

// Client is a WebSocket client that reconnects with exponential backoff after
// a read or ping failure until closed.
type Client struct {
	config Config

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     State
	onMessage MessageHandler
	onState   StateHandler

	// lifecycle bounds the read, ping and reconnect goroutines.
	lifecycle context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup

	attrs   metric.MeasurementOption
	metrics clientMetrics
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	u, err := url.Parse(config.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("websocket url %q", config.URL)))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:    config,
		state:     StateDisconnected,
		lifecycle: ctx,
		cancel:    cancel,
		attrs:     metric.WithAttributes(attribute.String("connection", config.Name)),
	}
	if err := c.initMetrics(); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics.messages, err = meter.Int64Counter(
		"ws_messages_received_total",
		metric.WithDescription("WebSocket messages received"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	c.metrics.reconnects, err = meter.Int64Counter(
		"ws_reconnects_total",
		metric.WithDescription("WebSocket reconnect attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"ws_errors_total",
		metric.WithDescription("WebSocket read, write and ping errors"),
		metric.WithUnit("{error}"),
	)
	return err
}

// OnMessage registers the inbound message handler. Set it before Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

// OnStateChange registers the state transition handler.
func (c *Client) OnStateChange(h StateHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether messages can be sent.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect dials once. On failure the client is left disconnected.
func (c *Client) Connect(ctx context.Context) error {
	return c.dial(ctx, StateDisconnected)
}

// ConnectWithRetry dials until it succeeds, ctx ends, or MaxReconnects is hit.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return err
		}
		if werr := c.sleep(ctx, backoff); werr != nil {
			return err
		}
		backoff = c.nextBackoff(backoff)
	}
}

func (c *Client) dial(ctx context.Context, onFailure State) error {
	if c.State() == StateClosed {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		c.metrics.errors.Add(c.lifecycle, 1, c.attrs)
		c.setState(onFailure, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		conn.CloseNow()
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn)
	}

	return nil
}

// Send writes a text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if conn == nil || state != StateConnected {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext(fmt.Sprintf("%s is %s", c.config.Name, state)))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		c.metrics.errors.Add(c.lifecycle, 1, c.attrs)
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketSendError, apperror.WithCause(err))
	}
	return c.Send(ctx, data)
}

// Close stops reconnection and closes the connection. Safe to call twice.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		c.setState(StateClosed, nil)

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.cancel()
		c.wg.Wait()
	})
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		ctx := c.lifecycle
		var cancel context.CancelFunc = func() {}
		if c.config.ReadTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.metrics.messages.Add(c.lifecycle, 1, c.attrs)

		c.mu.RLock()
		h := c.onMessage
		c.mu.RUnlock()
		if h != nil {
			h(c.lifecycle, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.lifecycle.Done():
			return
		case <-ticker.C:
			if !c.isCurrent(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(c.lifecycle, c.config.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				c.handleDisconnect(conn, fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (c *Client) isCurrent(conn *websocket.Conn) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn == conn
}

// handleDisconnect drops conn and starts reconnecting, once per connection.
func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	c.metrics.errors.Add(c.lifecycle, 1, c.attrs)
	conn.CloseNow()
	c.setState(StateReconnecting, cause)

	c.wg.Add(1)
	go c.reconnectLoop(cause)
}

func (c *Client) reconnectLoop(cause error) {
	defer c.wg.Done()

	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := c.sleep(c.lifecycle, backoff); err != nil {
			return
		}
		if c.config.MaxReconnects > 0 && attempt > c.config.MaxReconnects {
			c.setState(StateDisconnected, fmt.Errorf("gave up after %d reconnects: %w", c.config.MaxReconnects, cause))
			return
		}

		c.metrics.reconnects.Add(c.lifecycle, 1, c.attrs)
		err := c.dial(c.lifecycle, StateReconnecting)
		if err == nil {
			return
		}
		if c.State() == StateClosed {
			return
		}
		cause = err
		backoff = c.nextBackoff(backoff)
	}
}

func (c *Client) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > c.config.MaxBackoff {
		d = c.config.MaxBackoff
	}
	return d
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.lifecycle.Done():
		return c.lifecycle.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed && state != StateClosed {
		c.mu.Unlock()
		return
	}
	changed := c.state != state
	c.state = state
	h := c.onState
	c.mu.Unlock()

	if h != nil && (changed || err != nil) {
		h(state, err)
	}
}
