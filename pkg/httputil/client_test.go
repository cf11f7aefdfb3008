package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexcast/pkg/config"
	"github.com/wonny/indexcast/pkg/logger"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{Env: "development", LogLevel: "error"}
	return New(cfg, logger.NewNop())
}

func TestNew(t *testing.T) {
	client := testClient(t)

	if client.httpClient == nil {
		t.Fatal("Expected http.Client to be initialized")
	}
	if client.retryConfig.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", client.retryConfig.MaxRetries)
	}
	assert.Equal(t, DefaultUserAgent, client.userAgent)
	assert.Nil(t, client.throttle)
}

func TestNewWithProxy(t *testing.T) {
	cfg := &config.Config{Yahoo: config.YahooConfig{Proxy: "http://proxy.local:3128"}}
	client := New(cfg, logger.NewNop())

	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodGet, "https://query1.finance.yahoo.com", nil)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", proxyURL.Host)
}

func TestOptions(t *testing.T) {
	cfg := &config.Config{}

	client := NewWithTimeout(cfg, logger.NewNop(), 5*time.Second).
		WithRetry(5, 2*time.Second).
		WithThrottle(4).
		WithUserAgent("test-agent")

	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 5, client.retryConfig.MaxRetries)
	assert.Equal(t, 2*time.Second, client.retryConfig.InitialDelay)
	assert.NotNil(t, client.throttle)
	assert.Equal(t, "test-agent", client.userAgent)

	client.DisableRetry()
	assert.False(t, client.retryConfig.Enabled)
}

func TestGetSetsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer server.Close()

	body, err := testClient(t).GetBody(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, string(body))
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"^GSPC","close":4783.45}`))
	}))
	defer server.Close()

	var got struct {
		Symbol string  `json:"symbol"`
		Close  float64 `json:"close"`
	}
	require.NoError(t, testClient(t).GetJSON(context.Background(), server.URL, &got))
	assert.Equal(t, "^GSPC", got.Symbol)
	assert.InDelta(t, 4783.45, got.Close, 1e-9)
}

func TestGetJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"error":{"code":"Not Found"}}}`))
	}))
	defer server.Close()

	var dest map[string]interface{}
	err := testClient(t).GetJSON(context.Background(), server.URL, &dest)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Not Found")
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient(t).WithRetry(3, 10*time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryOn429(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := testClient(t).WithRetry(2, 10*time.Millisecond).Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestRetryExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(t).WithRetry(2, 5*time.Millisecond).GetBody(context.Background(), server.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(t).WithRetry(5, time.Second).Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoRetryWhenDisabled(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resp, err := testClient(t).DisableRetry().Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{201, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			if got := IsRetryableError(tt.statusCode); got != tt.want {
				t.Errorf("IsRetryableError(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}
