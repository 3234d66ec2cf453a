package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(output))
	return err
}

func (a *app) printTodos(todos []model.Todo) error {
	if a.cfg.Output == outputJSON {
		return a.printJSON(todos)
	}
	if len(todos) == 0 {
		_, err := fmt.Fprintln(a.out, "no todos")
		return err
	}
	for _, todo := range todos {
		if _, err := fmt.Fprintln(a.out, formatTodo(todo)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printTodo(todo model.Todo) error {
	if a.cfg.Output == outputJSON {
		return a.printJSON(todo)
	}
	_, err := fmt.Fprintln(a.out, formatTodo(todo))
	return err
}

// formatTodo renders one todo as a text line: id, check box, owner, title.
func formatTodo(todo model.Todo) string {
	mark := " "
	if todo.Completed {
		mark = "x"
	}
	return fmt.Sprintf("%4d [%s] user %-3d %s", todo.ID, mark, todo.UserID, todo.Title)
}

// parseID parses a positional todo id.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", arg)
	}
	return id, nil
}
