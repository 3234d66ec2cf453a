package main

import (
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/crud"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the completion flag of a todo",
		Long: `Toggle selects the todo through read-one, then sends it back with the
completion flag flipped through update. Both operations must be enabled.`,
		Args: cobra.ExactArgs(1),
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

			if !store.Enabled(crud.OpUpdate) {
				return store.Update(model.Todo{ID: id}).Err()
			}
			if err := store.ReadOne(id).Wait(cmd.Context()); err != nil {
				return err
			}
			selected, _ := store.Selected()

			// Update reconciles against the item list, so work on a store
			// holding the selected todo.
			editor, err := a.newStore(cmd.Context(), model.State[model.Todo]{
				Items:        []model.Todo{selected},
				SelectedItem: &selected,
			})
			if err != nil {
				return err
			}
			defer editor.Close()

			if err := editor.Update(selected.Toggled()).Wait(cmd.Context()); err != nil {
				return err
			}
			return a.printTodo(editor.Items()[0])
		},
	}
}
