// Package store provides todo storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("todo not found")
	ErrInvalidID = errors.New("invalid todo ID")
	ErrNilTodo   = errors.New("todo cannot be nil")
)

// Filter narrows a List call. Nil fields match everything.
type Filter struct {
	UserID    *int
	Completed *bool
}

// Match reports whether todo passes the filter.
func (f Filter) Match(todo model.Todo) bool {
	if f.UserID != nil && todo.UserID != *f.UserID {
		return false
	}
	if f.Completed != nil && todo.Completed != *f.Completed {
		return false
	}
	return true
}

// Store defines the interface for todo storage operations.
type Store interface {
	// List returns the todos matching filter in ascending id order.
	List(ctx context.Context, filter Filter) ([]model.Todo, error)

	// Get retrieves a todo by its ID.
	Get(ctx context.Context, id int) (*model.Todo, error)

	// Create adds a new todo and returns it with its assigned ID.
	Create(ctx context.Context, todo *model.Todo) (*model.Todo, error)

	// Update replaces the todo stored under id.
	Update(ctx context.Context, id int, todo *model.Todo) (*model.Todo, error)

	// Delete removes a todo by its ID.
	Delete(ctx context.Context, id int) error

	// Close releases any resources held by the store.
	Close() error
}
