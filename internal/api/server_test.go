package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&config.Config{API: config.APIConfig{Port: 5005}}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"status":"OK"}`, rec.Body.String())
}

func TestOnlyHealthIsRouted(t *testing.T) {
	s := newTestServer(t)
	handler := s.Routes()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown path", http.MethodGet, "/status", http.StatusNotFound},
		{"root", http.MethodGet, "/", http.StatusNotFound},
		{"metrics not on api port", http.MethodGet, "/metrics", http.StatusNotFound},
		{"post health", http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNewServerRejectsInvalidPort(t *testing.T) {
	_, err := NewServer(&config.Config{API: config.APIConfig{Port: 0}}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewServer(&config.Config{API: config.APIConfig{Port: 70000}}, zap.NewNop())
	assert.Error(t, err)
}

func TestServerStartStop(t *testing.T) {
	port := freePort(t)
	s, err := NewServer(&config.Config{API: config.APIConfig{Port: port}}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NotNil(t, s.Addr())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"OK"}`, string(body))

	assert.NoError(t, s.Stop(ctx))
}

func TestServerStartPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()

	s, err := NewServer(&config.Config{API: config.APIConfig{Port: l.Addr().(*net.TCPAddr).Port}}, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, s.Start(context.Background()))
}
