package liveserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dex_trader/internal/core"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields ...interface{}) { m.Called(msg, fields) }
func (m *MockLogger) Info(msg string, fields ...interface{})  { m.Called(msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...interface{})  { m.Called(msg, fields) }
func (m *MockLogger) Error(msg string, fields ...interface{}) { m.Called(msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...interface{}) { m.Called(msg, fields) }
func (m *MockLogger) WithField(key string, value interface{}) core.ILogger {
	return m
}
func (m *MockLogger) WithFields(fields map[string]interface{}) core.ILogger {
	return m
}

func newMockLogger() *MockLogger {
	logger := new(MockLogger)
	logger.On("Debug", mock.Anything, mock.Anything).Return()
	logger.On("Info", mock.Anything, mock.Anything).Return()
	logger.On("Warn", mock.Anything, mock.Anything).Return()
	logger.On("Error", mock.Anything, mock.Anything).Return()
	return logger
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func dialWithOrigin(url string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	header.Set("Origin", "http://localhost")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestServer_GlobalConnectionLimit(t *testing.T) {
	logger := newMockLogger()
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := NewServer(hub, logger, []string{"*"})
	server.SetMaxConnections(2)

	s := httptest.NewServer(http.HandlerFunc(server.handleWebSocket))
	defer s.Close()

	conn1, _, err := dialWithOrigin(wsURL(s))
	require.NoError(t, err)
	defer conn1.Close()

	conn2, _, err := dialWithOrigin(wsURL(s))
	require.NoError(t, err)
	defer conn2.Close()

	_, resp, err := dialWithOrigin(wsURL(s))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	logger.AssertCalled(t, "Warn", "Max connections reached", mock.Anything)

	// Freeing a slot admits the next client
	conn1.Close()
	assert.Eventually(t, func() bool {
		conn, _, err := dialWithOrigin(wsURL(s))
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond)
}

func TestServer_IPRateLimit(t *testing.T) {
	logger := newMockLogger()
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := NewServer(hub, logger, []string{"*"})
	server.SetRateLimit(0.001, 2)

	s := httptest.NewServer(http.HandlerFunc(server.handleWebSocket))
	defer s.Close()

	for i := 0; i < 2; i++ {
		conn, _, err := dialWithOrigin(wsURL(s))
		require.NoError(t, err)
		defer conn.Close()
	}

	_, resp, err := dialWithOrigin(wsURL(s))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	logger.AssertCalled(t, "Warn", "IP rate limit exceeded", mock.Anything)
}
