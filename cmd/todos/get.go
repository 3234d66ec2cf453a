package main

import (
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Select one todo through the read-one operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := a.newStore(cmd.Context(), model.NewState[model.Todo]())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReadOne(id).Wait(cmd.Context()); err != nil {
				return err
			}
			selected, _ := store.Selected()
			return a.printTodo(selected)
		},
	}
}
