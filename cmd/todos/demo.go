package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/crud"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// demoPresets are the store configurations the demo walks through.
var demoPresets = []string{"all", "read", "read-delete"}

// demoResult reports what one store configuration allowed.
type demoResult struct {
	Preset       string       `json:"preset"`
	Capabilities string       `json:"capabilities"`
	Items        []model.Todo `json:"items"`
	Operations   []demoStep   `json:"operations"`
}

type demoStep struct {
	Op     string `json:"op"`
	Result string `json:"result"`
}

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Exercise the full, read-only and read-and-delete store configurations",
		Long: `Demo builds one store per configuration (all, read, read-delete), loads
the collection and tries every operation on it. Operations a configuration
does not expose report "not enabled" and leave the state untouched.
Use --max-id to trim the loaded collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results := make([]demoResult, 0, len(demoPresets))
			for _, preset := range demoPresets {
				result, err := a.runDemo(cmd, preset)
				if err != nil {
					return fmt.Errorf("demo %s: %w", preset, err)
				}
				results = append(results, result)
			}

			if a.cfg.Output == outputJSON {
				return a.printJSON(results)
			}
			for _, result := range results {
				fmt.Fprintf(a.out, "== %s (%s)\n", result.Preset, result.Capabilities)
				for _, step := range result.Operations {
					fmt.Fprintf(a.out, "  %-9s %s\n", step.Op, step.Result)
				}
				if err := a.printTodos(result.Items); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) runDemo(cmd *cobra.Command, preset string) (demoResult, error) {
	cfg, err := crud.ParseConfig(preset)
	if err != nil {
		return demoResult{}, err
	}
	store, err := a.newStoreWith(cmd.Context(), cfg, model.NewState[model.Todo]())
	if err != nil {
		return demoResult{}, err
	}
	defer store.Close()

	result := demoResult{Preset: preset, Capabilities: store.Capabilities().String()}
	step := func(op crud.Op, call *crud.Call) error {
		err := call.Wait(cmd.Context())
		switch {
		case err == nil:
			result.Operations = append(result.Operations, demoStep{Op: op.String(), Result: "ok"})
		case errors.Is(err, crud.ErrNotEnabled):
			result.Operations = append(result.Operations, demoStep{Op: op.String(), Result: "not enabled"})
		case errors.Is(err, crud.ErrEntityNotFound):
			result.Operations = append(result.Operations, demoStep{Op: op.String(), Result: "not in items"})
		default:
			return err
		}
		return nil
	}

	if err := step(crud.OpReadAll, store.ReadAll(nil)); err != nil {
		return result, err
	}
	items := store.Items()

	var first model.Todo
	if len(items) > 0 {
		first = items[0]
	} else {
		first = model.Todo{ID: 1}
	}

	if err := step(crud.OpReadOne, store.ReadOne(first.ID)); err != nil {
		return result, err
	}
	if err := step(crud.OpCreate, store.Create(model.Todo{UserID: 1, Title: "demo todo"})); err != nil {
		return result, err
	}
	if err := step(crud.OpUpdate, store.Update(first.Toggled())); err != nil {
		return result, err
	}
	if err := step(crud.OpDelete, store.Delete(first)); err != nil {
		return result, err
	}

	result.Items = store.Items()
	return result, nil
}
