package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	todos  map[int]model.Todo
	nextID int
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos:  make(map[int]model.Todo),
		nextID: 1,
	}
}

// List returns the todos matching filter in ascending id order.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list todos: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]model.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		if filter.Match(todo) {
			todos = append(todos, todo)
		}
	}
	slices.SortFunc(todos, func(a, b model.Todo) int { return cmp.Compare(a.ID, b.ID) })

	return todos, nil
}

// Get retrieves a todo by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get todo: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, exists := s.todos[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &todo, nil
}

// Create adds a new todo and returns it with the next sequential ID.
func (s *MemoryStore) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create todo: %w", ctx.Err())
	default:
	}

	if todo == nil {
		return nil, fmt.Errorf("create todo: %w", ErrNilTodo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := *todo
	created.ID = s.nextID
	s.nextID++

	s.todos[created.ID] = created

	return &created, nil
}

// Update replaces the todo stored under id.
func (s *MemoryStore) Update(ctx context.Context, id int, todo *model.Todo) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update todo: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	if todo == nil {
		return nil, fmt.Errorf("update todo: %w", ErrNilTodo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[id]; !exists {
		return nil, ErrNotFound
	}

	updated := *todo
	updated.ID = id
	s.todos[id] = updated

	return &updated, nil
}

// Delete removes a todo by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id int) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete todo: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[id]; !exists {
		return ErrNotFound
	}

	delete(s.todos, id)

	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
