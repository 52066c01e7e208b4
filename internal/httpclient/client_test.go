package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	var gotAuth, gotQuery, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithBaseURL(srv.URL+"/v1/"),
		WithHeaders(map[string]string{"Authorization": "Bearer k"}),
		WithRequestTimeout(time.Second),
		WithProviderName("test"),
	)
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	resp, err := client.NewRequest().
		SetBody(map[string]string{"model": "m"}).
		SetQueryParam("q", "a b").
		SetResult(&out).
		Post(context.Background(), "/chat/completions")

	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "abc", out.ID)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "q=a+b", gotQuery)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "m", gotBody["model"])
}

func TestClient_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	limited := errors.New("rate limited")
	resp, err := client.NewRequestWithOptions(
		WithResponseErrorHandler(func(status int, _ []byte) error {
			if status == http.StatusTooManyRequests {
				return limited
			}
			return nil
		}),
		WithLabels(Label{Key: "operation", Value: "test"}),
	).Get(context.Background(), "/x")

	assert.ErrorIs(t, err, limited)
	require.NotNil(t, resp)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "slow down", resp.String())
}

type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestClient_CustomRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt := &countingTransport{next: http.DefaultTransport}
	client, err := NewInstrumentedClient(WithBaseURL(srv.URL), WithRoundTripper(rt))
	require.NoError(t, err)

	resp, err := client.NewRequestWithOptions(WithHeadersLogConfig(true, "Authorization")).
		SetHeader("Authorization", "Bearer secret").
		Get(context.Background(), "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, rt.calls)
}

func TestRejectNon2xx(t *testing.T) {
	assert.NoError(t, RejectNon2xx(http.StatusOK, nil))
	assert.NoError(t, RejectNon2xx(http.StatusNoContent, nil))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	err := RejectNon2xx(http.StatusBadGateway, long)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Len(t, se.Body, 200)
}

func TestClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	var out map[string]any
	resp, err := client.NewRequest().SetResult(&out).Get(context.Background(), "/")
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "not json", resp.String())
}
