package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/model"
	"github.com/vyrodovalexey/todo-crud/internal/store"
)

// failingStore wraps a MemoryStore and injects per-operation errors.
type failingStore struct {
	*store.MemoryStore
	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
}

func newFailingStore(t *testing.T, todos ...model.Todo) *failingStore {
	t.Helper()
	s := store.NewMemoryStore()
	for i := range todos {
		if _, err := s.Create(context.Background(), &todos[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return &failingStore{MemoryStore: s}
}

func (f *failingStore) List(ctx context.Context, filter store.Filter) ([]model.Todo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.List(ctx, filter)
}

func (f *failingStore) Get(ctx context.Context, id int) (*model.Todo, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.Get(ctx, id)
}

func (f *failingStore) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.MemoryStore.Create(ctx, todo)
}

func (f *failingStore) Update(ctx context.Context, id int, todo *model.Todo) (*model.Todo, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.MemoryStore.Update(ctx, id, todo)
}

func (f *failingStore) Delete(ctx context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, id)
}

// recordingPublisher captures published change events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (p *recordingPublisher) Publish(event model.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []model.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ChangeEvent(nil), p.events...)
}

func seedTodos() []model.Todo {
	return []model.Todo{
		{UserID: 1, Title: "first"},
		{UserID: 1, Title: "second", Completed: true},
		{UserID: 2, Title: "third"},
	}
}

func newRouter(h *RESTHandler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestNewRESTHandler(t *testing.T) {
	// Act
	handler := NewRESTHandler(newFailingStore(t), nil, zap.NewNop())

	// Assert
	if handler == nil {
		t.Fatal("NewRESTHandler() returned nil")
	}
	if handler.store == nil {
		t.Error("store should not be nil")
	}
	if handler.publisher == nil {
		t.Error("nil publisher should be replaced")
	}
}

func TestRESTHandler_HealthCheck(t *testing.T) {
	// Arrange
	handler := NewRESTHandler(newFailingStore(t), nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.HealthCheck(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("HealthCheck() status = %d, want %d", rr.Code, http.StatusOK)
	}

	var response HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "healthy" || response.Version != Version {
		t.Errorf("HealthCheck() = %+v", response)
	}
}

func TestRESTHandler_ListTodos(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		listErr    error
		wantStatus int
		wantIDs    []int
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, wantIDs: []int{1, 2, 3}},
		{name: "by user", query: "?userId=1", wantStatus: http.StatusOK, wantIDs: []int{1, 2}},
		{name: "by completed", query: "?completed=true", wantStatus: http.StatusOK, wantIDs: []int{2}},
		{name: "combined", query: "?userId=1&completed=false", wantStatus: http.StatusOK, wantIDs: []int{1}},
		{name: "bad user", query: "?userId=abc", wantStatus: http.StatusBadRequest},
		{name: "bad completed", query: "?completed=maybe", wantStatus: http.StatusBadRequest},
		{name: "store error", listErr: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newFailingStore(t, seedTodos()...)
			s.listErr = tt.listErr
			handler := NewRESTHandler(s, nil, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/todos"+tt.query, nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ListTodos(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("ListTodos() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantIDs == nil {
				return
			}

			var todos []model.Todo
			if err := json.NewDecoder(rr.Body).Decode(&todos); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(todos) != len(tt.wantIDs) {
				t.Fatalf("ListTodos() count = %d, want %d", len(todos), len(tt.wantIDs))
			}
			for i, todo := range todos {
				if todo.ID != tt.wantIDs[i] {
					t.Errorf("todos[%d].ID = %d, want %d", i, todo.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestRESTHandler_ListTodos_EmptyIsArray(t *testing.T) {
	// Arrange
	handler := NewRESTHandler(newFailingStore(t), nil, zap.NewNop())
	rr := httptest.NewRecorder()

	// Act
	handler.ListTodos(rr, httptest.NewRequest(http.MethodGet, "/todos", nil))

	// Assert
	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestRESTHandler_GetTodo(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		getErr     error
		wantStatus int
	}{
		{name: "existing todo", id: "2", wantStatus: http.StatusOK},
		{name: "missing todo", id: "99", wantStatus: http.StatusNotFound},
		{name: "non-numeric id", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "zero id", id: "0", wantStatus: http.StatusBadRequest},
		{name: "store error", id: "1", getErr: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newFailingStore(t, seedTodos()...)
			s.getErr = tt.getErr
			handler := NewRESTHandler(s, nil, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/todos/"+tt.id, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()

			// Act
			handler.GetTodo(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("GetTodo() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				var errResp model.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
					t.Fatalf("Failed to decode error: %v", err)
				}
				if errResp.Code != tt.wantStatus {
					t.Errorf("error code = %d, want %d", errResp.Code, tt.wantStatus)
				}
				return
			}

			var todo model.Todo
			if err := json.NewDecoder(rr.Body).Decode(&todo); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if strconv.Itoa(todo.ID) != tt.id || todo.Title != "second" {
				t.Errorf("GetTodo() = %+v", todo)
			}
		})
	}
}

func TestRESTHandler_CreateTodo(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantEvent  bool
	}{
		{name: "valid todo", body: `{"userId":1,"title":"new"}`, wantStatus: http.StatusCreated, wantEvent: true},
		{name: "malformed json", body: `{"title":`, wantStatus: http.StatusBadRequest},
		{name: "empty title", body: `{"userId":1,"title":""}`, wantStatus: http.StatusBadRequest},
		{name: "negative user", body: `{"userId":-1,"title":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "store error", body: `{"title":"x"}`, createErr: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newFailingStore(t, seedTodos()...)
			s.createErr = tt.createErr
			publisher := &recordingPublisher{}
			handler := NewRESTHandler(s, publisher, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/todos", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			// Act
			handler.CreateTodo(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("CreateTodo() status = %d, want %d", rr.Code, tt.wantStatus)
			}

			events := publisher.Events()
			if !tt.wantEvent {
				if len(events) != 0 {
					t.Errorf("published %d events, want 0", len(events))
				}
				return
			}

			var created model.Todo
			if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if created.ID != 4 || created.Title != "new" {
				t.Errorf("CreateTodo() = %+v", created)
			}
			if len(events) != 1 || events[0].Type != model.ChangeTypeCreated || events[0].ID != 4 {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

func TestRESTHandler_UpdateTodo(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		updateErr  error
		wantStatus int
	}{
		{name: "valid update", id: "1", body: `{"id":1,"userId":1,"title":"first","completed":true}`, wantStatus: http.StatusOK},
		{name: "path id wins", id: "3", body: `{"id":1,"userId":2,"title":"third","completed":true}`, wantStatus: http.StatusOK},
		{name: "missing todo", id: "42", body: `{"title":"x"}`, wantStatus: http.StatusNotFound},
		{name: "bad id", id: "x", body: `{"title":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", id: "1", body: `nope`, wantStatus: http.StatusBadRequest},
		{name: "empty title", id: "1", body: `{"title":""}`, wantStatus: http.StatusBadRequest},
		{name: "store error", id: "1", body: `{"title":"x"}`, updateErr: errors.New("locked"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newFailingStore(t, seedTodos()...)
			s.updateErr = tt.updateErr
			publisher := &recordingPublisher{}
			handler := NewRESTHandler(s, publisher, zap.NewNop())

			req := httptest.NewRequest(http.MethodPut, "/todos/"+tt.id, bytes.NewBufferString(tt.body))
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()

			// Act
			handler.UpdateTodo(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("UpdateTodo() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if n := len(publisher.Events()); n != 0 {
					t.Errorf("published %d events, want 0", n)
				}
				return
			}

			var updated model.Todo
			if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if strconv.Itoa(updated.ID) != tt.id || !updated.Completed {
				t.Errorf("UpdateTodo() = %+v", updated)
			}
			events := publisher.Events()
			if len(events) != 1 || events[0].Type != model.ChangeTypeUpdated || events[0].Todo == nil {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

func TestRESTHandler_DeleteTodo(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		deleteErr  error
		wantStatus int
	}{
		{name: "existing todo", id: "2", wantStatus: http.StatusOK},
		{name: "missing todo", id: "9", wantStatus: http.StatusNotFound},
		{name: "bad id", id: "-4", wantStatus: http.StatusBadRequest},
		{name: "store error", id: "1", deleteErr: errors.New("locked"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newFailingStore(t, seedTodos()...)
			s.deleteErr = tt.deleteErr
			publisher := &recordingPublisher{}
			handler := NewRESTHandler(s, publisher, zap.NewNop())

			req := httptest.NewRequest(http.MethodDelete, "/todos/"+tt.id, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()

			// Act
			handler.DeleteTodo(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("DeleteTodo() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "{}" {
				t.Errorf("body = %s, want {}", got)
			}
			events := publisher.Events()
			if len(events) != 1 || events[0].Type != model.ChangeTypeDeleted || events[0].ID != 2 || events[0].Todo != nil {
				t.Errorf("events = %+v", events)
			}
			if _, err := s.Get(context.Background(), 2); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want %v", err, store.ErrNotFound)
			}
		})
	}
}

func TestRESTHandler_RegisterRoutes(t *testing.T) {
	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/todos", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/todos", body: `{"title":"x"}`, wantStatus: http.StatusCreated},
		{method: http.MethodGet, path: "/todos/1", wantStatus: http.StatusOK},
		{method: http.MethodPut, path: "/todos/1", body: `{"title":"x"}`, wantStatus: http.StatusOK},
		{method: http.MethodDelete, path: "/todos/1", wantStatus: http.StatusOK},
		{method: http.MethodPatch, path: "/todos/1", wantStatus: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/api/v1/items", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			// Arrange
			router := newRouter(NewRESTHandler(newFailingStore(t, seedTodos()...), nil, zap.NewNop()))
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, tt.wantStatus)
			}
		})
	}
}
