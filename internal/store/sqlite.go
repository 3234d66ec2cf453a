package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

const createTodos = `CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0
);`

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on top of a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and ensures the schema exists.
// Use MemoryDSN for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to :memory: would see its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTodos); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// List returns the todos matching filter in ascending id order.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]model.Todo, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *filter.Completed)
	}

	query := "SELECT id, user_id, title, completed FROM todos"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("list todos: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return todos, nil
}

// Get retrieves a todo by its ID.
func (s *SQLiteStore) Get(ctx context.Context, id int) (*model.Todo, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, completed FROM todos WHERE id = ?", id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get todo %d: %w", id, err)
	}

	return todo, nil
}

// Create inserts a todo and returns it with the generated ID.
func (s *SQLiteStore) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	if todo == nil {
		return nil, fmt.Errorf("create todo: %w", ErrNilTodo)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO todos (user_id, title, completed) VALUES (?, ?, ?)",
		todo.UserID, todo.Title, todo.Completed)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	created := *todo
	created.ID = int(id)

	return &created, nil
}

// Update replaces the todo stored under id.
func (s *SQLiteStore) Update(ctx context.Context, id int, todo *model.Todo) (*model.Todo, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	if todo == nil {
		return nil, fmt.Errorf("update todo: %w", ErrNilTodo)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE todos SET user_id = ?, title = ?, completed = ? WHERE id = ?",
		todo.UserID, todo.Title, todo.Completed, id)
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	updated := *todo
	updated.ID = id

	return &updated, nil
}

// Delete removes a todo by its ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidID
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	return requireAffected(res)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*model.Todo, error) {
	var todo model.Todo
	if err := row.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed); err != nil {
		return nil, err
	}
	return &todo, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
