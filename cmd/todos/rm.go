package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo through the delete operation",
		Args:    cobra.ExactArgs(1),
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

			if err := store.Delete(model.Todo{ID: id}).Wait(cmd.Context()); err != nil {
				return err
			}

			if a.cfg.Output == outputJSON {
				return a.printJSON(map[string]int{"deleted": id})
			}
			_, err = fmt.Fprintf(a.out, "deleted %d\n", id)
			return err
		},
	}
}
