package wsconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/apperror"
)

// wsServer accepts connections and hands each to handler. It reports the
// number of accepted connections.
func wsServer(t *testing.T, handler func(n int32, conn *websocket.Conn)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		handler(accepted.Add(1), conn)
	}))
	t.Cleanup(srv.Close)
	return srv, &accepted
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	return cfg
}

func drain(_ int32, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func TestNew_RejectsNonWebsocketURL(t *testing.T) {
	for _, u := range []string{"http://stream.binance.com", "://", ""} {
		_, err := New(testConfig(u))
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput), "url %q", u)
	}
}

func TestClient_ReceivesBookTickerFrames(t *testing.T) {
	frame := `{"stream":"ethusdt@bookTicker","data":{"s":"ETHUSDT","b":"2000.10","a":"2000.20"}}`
	srv, _ := wsServer(t, func(_ int32, conn *websocket.Conn) {
		_ = conn.Write(context.Background(), websocket.MessageText, []byte(frame))
		drain(0, conn)
	})

	client, err := New(testConfig(wsURL(srv)))
	require.NoError(t, err)
	defer client.Close()

	got := make(chan string, 1)
	client.OnMessage(func(_ context.Context, msg []byte) { got <- string(msg) })

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	select {
	case msg := <-got:
		assert.JSONEq(t, frame, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestClient_SendJSONSubscribe(t *testing.T) {
	received := make(chan []byte, 1)
	srv, _ := wsServer(t, func(_ int32, conn *websocket.Conn) {
		_, data, err := conn.Read(context.Background())
		if err == nil {
			received <- data
		}
		drain(0, conn)
	})

	client, err := New(testConfig(wsURL(srv)))
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Connect(context.Background()))

	req := map[string]any{"method": "SUBSCRIBE", "params": []string{"ethusdt@bookTicker"}, "id": 1}
	require.NoError(t, client.SendJSON(context.Background(), req))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"method":"SUBSCRIBE","params":["ethusdt@bookTicker"],"id":1}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive subscribe")
	}
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	client, err := New(testConfig("ws://127.0.0.1:1"))
	require.NoError(t, err)
	defer client.Close()

	err = client.Send(context.Background(), []byte("ping"))
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketClosed))
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxReconnects = 3
	client, err := New(cfg)
	require.NoError(t, err)
	defer client.Close()

	var mu sync.Mutex
	var states []State
	client.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	err = client.ConnectWithRetry(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketConnectionError))
	assert.Equal(t, StateDisconnected, client.State())

	mu.Lock()
	defer mu.Unlock()
	connecting := 0
	for _, s := range states {
		if s == StateConnecting {
			connecting++
		}
	}
	assert.Equal(t, 3, connecting)
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	srv, accepted := wsServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.Close(websocket.StatusGoingAway, "maintenance")
			return
		}
		drain(n, conn)
	})

	client, err := New(testConfig(wsURL(srv)))
	require.NoError(t, err)
	defer client.Close()

	var sawReconnecting atomic.Bool
	client.OnStateChange(func(s State, _ error) {
		if s == StateReconnecting {
			sawReconnecting.Store(true)
		}
	})

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return accepted.Load() >= 2 && client.IsConnected()
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, sawReconnecting.Load())
}

func TestClient_OversizedFrameDisconnects(t *testing.T) {
	srv, _ := wsServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("A", 4096)))
		}
		drain(n, conn)
	})

	cfg := testConfig(wsURL(srv))
	cfg.MaxMessageSize = 100
	cfg.MaxReconnects = 1
	cfg.InitialBackoff = time.Second
	client, err := New(cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return client.State() == StateReconnecting
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	srv, _ := wsServer(t, drain)

	client, err := New(testConfig(wsURL(srv)))
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))

	require.NoError(t, client.Close())
	assert.Equal(t, StateClosed, client.State())
	require.NoError(t, client.Close())

	err = client.Connect(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketClosed))
}
