package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/model"
	"github.com/vyrodovalexey/todo-crud/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// RESTHandler handles REST API requests for todos.
type RESTHandler struct {
	store     store.Store
	publisher Publisher
	logger    *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. A nil publisher
// disables change notifications.
func NewRESTHandler(s store.Store, publisher Publisher, logger *zap.Logger) *RESTHandler {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &RESTHandler{
		store:     s,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router. The GET
// routes also match OPTIONS so preflights reach the CORS middleware.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/todos", h.ListTodos).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/todos", h.CreateTodo).Methods(http.MethodPost)
	router.HandleFunc("/todos/{id}", h.GetTodo).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/todos/{id}", h.UpdateTodo).Methods(http.MethodPut)
	router.HandleFunc("/todos/{id}", h.DeleteTodo).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ListTodos handles GET /todos requests. The userId and completed query
// parameters narrow the result.
func (h *RESTHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.logger.Warn("invalid filter", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todos, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list todos", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve todos")
		return
	}

	h.writeJSON(w, http.StatusOK, todos)
}

// GetTodo handles GET /todos/{id} requests.
func (h *RESTHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleStoreError(w, err, "get todo")
		return
	}

	todo, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get todo")
		return
	}

	h.writeJSON(w, http.StatusOK, todo)
}

// CreateTodo handles POST /todos requests.
func (h *RESTHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeTodo(w, r)
	if !ok {
		return
	}

	todo, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.handleStoreError(w, err, "create todo")
		return
	}

	h.publisher.Publish(model.NewChangeEvent(model.ChangeTypeCreated, *todo))
	h.writeJSON(w, http.StatusCreated, todo)
}

// UpdateTodo handles PUT /todos/{id} requests. The path id wins over any
// id in the body.
func (h *RESTHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleStoreError(w, err, "update todo")
		return
	}

	input, ok := h.decodeTodo(w, r)
	if !ok {
		return
	}

	todo, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		h.handleStoreError(w, err, "update todo")
		return
	}

	h.publisher.Publish(model.NewChangeEvent(model.ChangeTypeUpdated, *todo))
	h.writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/{id} requests and answers with an
// empty object.
func (h *RESTHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleStoreError(w, err, "delete todo")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, err, "delete todo")
		return
	}

	h.publisher.Publish(model.NewChangeEvent(model.ChangeTypeDeleted, model.Todo{ID: id}))
	h.writeJSON(w, http.StatusOK, struct{}{})
}

// decodeTodo reads and validates a todo body, writing a 400 on failure.
func (h *RESTHandler) decodeTodo(w http.ResponseWriter, r *http.Request) (*model.Todo, bool) {
	var input model.Todo
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return &input, true
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, store.ErrInvalidID
	}
	return id, nil
}

var errInvalidFilter = errors.New("invalid query parameter")

func parseFilter(r *http.Request) (store.Filter, error) {
	var filter store.Filter
	query := r.URL.Query()

	if raw := query.Get("userId"); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errInvalidFilter
		}
		filter.UserID = &userID
	}

	if raw := query.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errInvalidFilter
		}
		filter.Completed = &completed
	}

	return filter, nil
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "todo not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid todo ID")
	case errors.Is(err, store.ErrNilTodo):
		h.writeError(w, http.StatusBadRequest, "invalid request body")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
