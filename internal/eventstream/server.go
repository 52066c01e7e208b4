// Package eventstream broadcasts events from an events.Registry to WebSocket
// clients as JSON.
package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	meterName = "github.com/fd1az/swap-router/internal/eventstream"

	// Path is where clients connect.
	Path = "/events"

	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

// Message is the wire form of one event.
type Message struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

type client struct {
	out  chan []byte
	done chan struct{}
}

// Server fans events out to every connected client. A client whose buffer
// is full is disconnected rather than blocking the emitter.
type Server struct {
	hub  *events.Registry
	log  logger.LoggerInterface
	addr string

	mu      sync.Mutex
	clients map[*client]struct{}

	srv         *http.Server
	unsubscribe func()

	sent    metric.Int64Counter
	dropped metric.Int64Counter
}

// New creates a Server listening on port once started.
func New(hub *events.Registry, log logger.LoggerInterface, port int) (*Server, error) {
	s := &Server{
		hub:     hub,
		log:     log,
		addr:    fmt.Sprintf(":%d", port),
		clients: make(map[*client]struct{}),
	}

	meter := otel.Meter(meterName)
	var err error
	s.sent, err = meter.Int64Counter("eventstream_messages_sent_total",
		metric.WithDescription("Events written to stream clients"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}
	s.dropped, err = meter.Int64Counter("eventstream_clients_dropped_total",
		metric.WithDescription("Stream clients disconnected for falling behind"),
		metric.WithUnit("{client}"))
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Handler returns the HTTP handler serving Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleEvents)
	return mux
}

// Start subscribes to the hub and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("eventstream listen %s: %w", s.addr, err)
	}

	s.unsubscribe = s.hub.OnAny(s.Broadcast)
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.log.Info(ctx, "event stream listening", "addr", ln.Addr().String(), "path", Path)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(ctx, "event stream server error", "error", err)
		}
	}()
	return nil
}

// Stop unsubscribes and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.mu.Lock()
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast encodes ev and queues it for every client.
func (s *Server) Broadcast(ev events.Event) {
	data, err := json.Marshal(Message{
		Name:      ev.Name,
		Source:    ev.Source,
		Timestamp: ev.Timestamp,
		Payload:   ev.Payload,
	})
	if err != nil {
		s.log.Warn(context.Background(), "event not encodable", "event", ev.Name, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.out <- data:
		default:
			s.dropped.Add(context.Background(), 1)
			s.removeLocked(c)
		}
	}
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.done)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn(r.Context(), "event stream accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	c := &client{out: make(chan []byte, clientBuffer), done: make(chan struct{})}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.removeLocked(c)
		s.mu.Unlock()
	}()

	// Clients never send; CloseRead handles control frames and peer close.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			conn.Close(websocket.StatusPolicyViolation, "client too slow")
			return
		case data := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
			s.sent.Add(ctx, 1)
		}
	}
}
