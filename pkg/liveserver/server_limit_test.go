package liveserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestServer_GlobalConnectionLimit(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	server := newTestServer(t, hub, []string{"*"})
	server.maxConnections = 2
	server.connSemaphore = make(chan struct{}, 2)

	s := httptest.NewServer(http.HandlerFunc(server.handleWebSocket))
	defer s.Close()

	url := "ws" + strings.TrimPrefix(s.URL, "http")

	dial := func() (*websocket.Conn, *http.Response, error) {
		header := http.Header{}
		header.Set("Origin", "http://localhost")
		return websocket.DefaultDialer.Dial(url, header)
	}

	conn1, _, err := dial()
	assert.NoError(t, err)
	if conn1 != nil {
		defer conn1.Close()
	}

	conn2, _, err := dial()
	assert.NoError(t, err)
	if conn2 != nil {
		defer conn2.Close()
	}

	// Third connection exceeds the semaphore
	conn3, resp, err := dial()
	assert.Error(t, err)
	if conn3 != nil {
		conn3.Close()
	}

	if resp != nil {
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	} else {
		t.Error("Expected response with status code, got nil")
	}
}

func TestServer_IPRateLimit(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	server := newTestServer(t, hub, []string{"*"})
	server.rateLimit = rate.Limit(1.0)
	server.rateBurst = 1

	// High global limit so the IP limiter trips first
	server.maxConnections = 100
	server.connSemaphore = make(chan struct{}, 100)

	s := httptest.NewServer(http.HandlerFunc(server.handleWebSocket))
	defer s.Close()
	url := "ws" + strings.TrimPrefix(s.URL, "http")

	dial := func() (*websocket.Conn, *http.Response, error) {
		header := http.Header{}
		header.Set("Origin", "http://localhost")
		return websocket.DefaultDialer.Dial(url, header)
	}

	conn1, _, err := dial()
	assert.NoError(t, err)
	if conn1 != nil {
		defer conn1.Close()
	}

	// Burst of 1 is spent, second dial must be throttled
	conn2, resp, err := dial()
	assert.Error(t, err)
	if conn2 != nil {
		conn2.Close()
	}

	if resp != nil {
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	}
}
