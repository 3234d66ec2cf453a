package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		userID    int
		completed bool
	)

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a todo through the create operation",
		Long: `Add creates a todo from the joined arguments and prints the entity
returned by the API.

Example:
  todos add buy milk
  todos add --user-id 3 --completed "write report"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todo := model.Todo{
				UserID:    userID,
				Title:     strings.Join(args, " "),
				Completed: completed,
			}
			if err := todo.Validate(); err != nil {
				return err
			}

			store, err := a.newStore(cmd.Context(), model.NewState[model.Todo]())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Create(todo).Wait(cmd.Context()); err != nil {
				return err
			}
			items := store.Items()
			return a.printTodo(items[len(items)-1])
		},
	}

	cmd.Flags().IntVar(&userID, "user-id", 1, "owner of the new todo")
	cmd.Flags().BoolVar(&completed, "completed", false, "create the todo as completed")
	return cmd
}
