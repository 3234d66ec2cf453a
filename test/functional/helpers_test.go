//go:build functional

// Package functional runs the todo API server, the REST client and the crud
// store together over real sockets.
package functional

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/auth"
	"github.com/vyrodovalexey/todo-crud/internal/client"
	"github.com/vyrodovalexey/todo-crud/internal/config"
	"github.com/vyrodovalexey/todo-crud/internal/crud"
	"github.com/vyrodovalexey/todo-crud/internal/model"
	"github.com/vyrodovalexey/todo-crud/internal/server"
	"github.com/vyrodovalexey/todo-crud/internal/store"
)

// Test timeouts.
const (
	DefaultTestTimeout      = 10 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
)

// TestServer is a running todo API server.
type TestServer struct {
	Server   *server.Server
	Store    store.Store
	Registry *prometheus.Registry
	BaseURL  string
	WSURL    string

	t       *testing.T
	mu      sync.Mutex
	started bool
}

type serverOptions struct {
	backend       string
	seed          int
	authenticator auth.Authenticator
}

// ServerOption configures a TestServer.
type ServerOption func(*serverOptions)

// WithSQLite backs the server with a SQLite file in a temp dir.
func WithSQLite() ServerOption {
	return func(o *serverOptions) { o.backend = config.BackendSQLite }
}

// WithSeed inserts n todos before the server starts.
func WithSeed(n int) ServerOption {
	return func(o *serverOptions) { o.seed = n }
}

// WithAuth protects the todo routes with a.
func WithAuth(a auth.Authenticator) ServerOption {
	return func(o *serverOptions) { o.authenticator = a }
}

// NewTestServer creates and starts a server on a free port. It is stopped
// when the test ends.
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	o := serverOptions{backend: config.BackendMemory}
	for _, opt := range opts {
		opt(&o)
	}

	// Find an available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	ctx := context.Background()
	var todoStore store.Store
	switch o.backend {
	case config.BackendSQLite:
		todoStore, err = store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "todos.db"))
		require.NoError(t, err)
	default:
		todoStore = store.NewMemoryStore()
	}
	t.Cleanup(func() { _ = todoStore.Close() })

	if o.seed > 0 {
		require.NoError(t, store.Seed(ctx, todoStore, o.seed))
	}

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  true,
		StoreBackend:    o.backend,
	}

	reg := prometheus.NewRegistry()
	srv, err := server.New(cfg, zap.NewNop(), todoStore,
		server.WithRegistry(reg),
		server.WithAuthenticator(o.authenticator),
	)
	require.NoError(t, err)

	ts := &TestServer{
		Server:   srv,
		Store:    todoStore,
		Registry: reg,
		BaseURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
		WSURL:    fmt.Sprintf("ws://127.0.0.1:%d/ws", port),
		t:        t,
	}
	ts.Start()
	t.Cleanup(ts.Stop)
	return ts
}

// Start starts the server and waits until it answers health checks.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	go func() {
		if err := ts.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

// waitForReady waits for the server to be ready to accept connections.
func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop stops the server.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}
	ts.started = false
}

// Client returns a REST client for the server.
func (ts *TestServer) Client(opts ...client.Option) *client.TodoClient {
	ts.t.Helper()
	c, err := client.New(ts.BaseURL, append([]client.Option{client.WithTimeout(DefaultTestTimeout)}, opts...)...)
	require.NoError(ts.t, err)
	return c
}

// NewStore builds a crud store over the server exposing the operations in
// cfg. It is closed when the test ends.
func (ts *TestServer) NewStore(cfg crud.Config, opts ...client.Option) *crud.Store[int, model.Todo] {
	ts.t.Helper()
	ops, err := crud.FromService[int, model.Todo](ts.Client(opts...), cfg)
	require.NoError(ts.t, err)
	return ts.NewStoreWith(ops)
}

// NewStoreWith builds a crud store from explicit operations.
func (ts *TestServer) NewStoreWith(ops crud.Operations[int, model.Todo]) *crud.Store[int, model.Todo] {
	ts.t.Helper()
	s := crud.New(ops,
		crud.WithName(strings.ReplaceAll(ts.t.Name(), "/", "_")),
		crud.WithRegisterer(ts.Registry),
	)
	ts.t.Cleanup(func() { _ = s.Close() })
	return s
}

// Watch opens the websocket change feed and consumes the hello event.
func (ts *TestServer) Watch() *websocket.Conn {
	ts.t.Helper()

	hub := ts.Server.Hub()
	before := hub.Subscribers()

	dialer := websocket.Dialer{HandshakeTimeout: DefaultWebSocketTimeout}
	conn, resp, err := dialer.Dial(ts.WSURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = conn.Close() })

	hello := ReadEvent(ts.t, conn)
	require.Equal(ts.t, model.ChangeTypeHello, hello.Type)

	require.Eventually(ts.t, func() bool {
		return hub.Subscribers() > before
	}, DefaultWebSocketTimeout, 10*time.Millisecond)
	return conn
}

// ReadEvent reads one change event.
func ReadEvent(t *testing.T, conn *websocket.Conn) model.ChangeEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultWebSocketTimeout)))
	var event model.ChangeEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

// testContext returns a context bounded by DefaultTestTimeout.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	t.Cleanup(cancel)
	return ctx
}
