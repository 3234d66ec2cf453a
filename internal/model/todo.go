// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// Validation errors for Todo.
var (
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrTitleTooLong = errors.New("title cannot exceed 255 characters")
	ErrNegativeUser = errors.New("userId cannot be negative")
)

// MaxTitleLength is the longest title the API accepts.
const MaxTitleLength = 255

// Entity is a record with a unique identifier of type K.
type Entity[K comparable] interface {
	EntityID() K
}

// Todo is a single entry of the todo collection. Field names follow the
// placeholder REST service wire format.
type Todo struct {
	ID        int    `json:"id"`
	UserID    int    `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// EntityID returns the todo identifier.
func (t Todo) EntityID() int {
	return t.ID
}

// Validate checks if the Todo has valid field values.
func (t *Todo) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if t.UserID < 0 {
		return ErrNegativeUser
	}
	return nil
}

// Toggled returns a copy of the todo with the completion flag flipped.
func (t Todo) Toggled() Todo {
	t.Completed = !t.Completed
	return t
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ChangeEvent is sent over the websocket change feed after the todo
// collection is mutated.
type ChangeEvent struct {
	Type      string    `json:"type"`
	ID        int       `json:"id,omitempty"`
	Todo      *Todo     `json:"todo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Change event types.
const (
	ChangeTypeCreated = "created"
	ChangeTypeUpdated = "updated"
	ChangeTypeDeleted = "deleted"
	// ChangeTypeHello is sent once when a subscriber connects.
	ChangeTypeHello = "hello"
)

// NewChangeEvent creates a change event for the given todo.
func NewChangeEvent(changeType string, todo Todo) ChangeEvent {
	ev := ChangeEvent{
		Type:      changeType,
		ID:        todo.ID,
		Timestamp: time.Now().UTC(),
	}
	if changeType != ChangeTypeDeleted {
		ev.Todo = &todo
	}
	return ev
}
