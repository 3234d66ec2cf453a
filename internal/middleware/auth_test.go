package middleware_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/auth"
	"github.com/vyrodovalexey/todo-crud/internal/middleware"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// stubAuthenticator returns a fixed result.
type stubAuthenticator struct {
	id  *auth.Identity
	err error
}

func (a *stubAuthenticator) Authenticate(*http.Request) (*auth.Identity, error) {
	return a.id, a.err
}

func (a *stubAuthenticator) Method() auth.Method { return auth.MethodMulti }

// identityHandler echoes the authenticated subject, or "anonymous".
func identityHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := "anonymous"
		if id, ok := auth.FromContext(r.Context()); ok {
			subject = id.Subject
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(subject))
	})
}

func TestAuth_Bypass(t *testing.T) {
	t.Parallel()

	deny := &stubAuthenticator{err: auth.ErrUnauthenticated}

	tests := []struct {
		name    string
		method  string
		path    string
		upgrade string
	}{
		{name: "health", method: http.MethodGet, path: "/health"},
		{name: "ready", method: http.MethodGet, path: "/ready"},
		{name: "metrics", method: http.MethodGet, path: "/metrics"},
		{name: "health subpath", method: http.MethodGet, path: "/health/live"},
		{name: "preflight", method: http.MethodOptions, path: "/todos"},
		{name: "websocket upgrade", method: http.MethodGet, path: "/ws", upgrade: "websocket"},
		{name: "websocket upgrade mixed case", method: http.MethodGet, path: "/ws", upgrade: "WebSocket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			handler := middleware.Auth(deny, zap.NewNop())(identityHandler())
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.upgrade != "" {
				req.Header.Set("Upgrade", tt.upgrade)
			}
			rr := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rr, req)

			// Assert
			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			if rr.Body.String() != "anonymous" {
				t.Errorf("body = %q, want anonymous", rr.Body.String())
			}
		})
	}
}

func TestAuth_ProtectedPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		path          string
		authenticator *stubAuthenticator
		wantStatus    int
		wantChallenge string
		wantBody      string
	}{
		{
			name:          "authenticated request carries identity",
			path:          "/todos",
			authenticator: &stubAuthenticator{id: &auth.Identity{Method: auth.MethodAPIKey, Subject: "cli"}},
			wantStatus:    http.StatusOK,
			wantBody:      "cli",
		},
		{
			name:          "missing credentials",
			path:          "/todos",
			authenticator: &stubAuthenticator{err: auth.ErrUnauthenticated},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `Basic realm="todos", API-Key`,
		},
		{
			name:          "wrong password",
			path:          "/todos/1",
			authenticator: &stubAuthenticator{err: fmt.Errorf("%w: wrong password", auth.ErrInvalidCredentials)},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `Basic realm="todos"`,
		},
		{
			name:          "wrong API key",
			path:          "/todos",
			authenticator: &stubAuthenticator{err: auth.ErrInvalidAPIKey},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: "API-Key",
		},
		{
			name:          "prefix of public path is protected",
			path:          "/healthXXX",
			authenticator: &stubAuthenticator{err: auth.ErrUnauthenticated},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `Basic realm="todos", API-Key`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			handler := middleware.Auth(tt.authenticator, zap.NewNop())(identityHandler())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if rr.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
				}
				return
			}

			if got := rr.Header().Get("WWW-Authenticate"); got != tt.wantChallenge {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantChallenge)
			}
			if got := rr.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", got)
			}
			var body model.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Code != http.StatusUnauthorized || body.Message == "" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}
