package main

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/todo-crud/internal/crud"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

const defaultFollowInterval = 2 * time.Second

func newListCmd(a *app) *cobra.Command {
	var (
		userID    int
		completed bool
		follow    bool
		interval  time.Duration
		updates   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos through the read-all operation",
		Long: `List loads the todo collection through the store's read-all operation
and prints the resulting items. With --follow it keeps reloading every
--interval and prints the list again whenever the store's items change.

Example:
  todos list
  todos list --user-id 1 --completed=false
  todos list --max-id 2
  todos list --follow --interval 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			if cmd.Flags().Changed("user-id") {
				query.Set("userId", strconv.Itoa(userID))
			}
			if cmd.Flags().Changed("completed") {
				query.Set("completed", strconv.FormatBool(completed))
			}

			store, err := a.newStore(cmd.Context(), model.NewState[model.Todo]())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReadAll(query).Wait(cmd.Context()); err != nil {
				return err
			}
			if !follow {
				return a.printTodos(store.Items())
			}
			if interval <= 0 {
				return fmt.Errorf("invalid interval %s", interval)
			}
			return a.follow(cmd.Context(), store, query, interval, updates)
		},
	}

	cmd.Flags().IntVar(&userID, "user-id", 0, "only todos of this user")
	cmd.Flags().BoolVar(&completed, "completed", false, "only todos with this completion state")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep reloading and print the list on every change")
	cmd.Flags().DurationVar(&interval, "interval", defaultFollowInterval, "reload period with --follow")
	cmd.Flags().IntVar(&updates, "updates", 0, "stop after printing the list this many times, 0 to run until interrupted")
	return cmd
}

// follow prints the loaded items, then reloads every interval and prints
// each settled snapshot whose items differ from the last one printed.
func (a *app) follow(
	ctx context.Context,
	store *crud.Store[int, model.Todo],
	query any,
	interval time.Duration,
	updates int,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots := make(chan model.State[model.Todo], 16)
	unsubscribe := store.Subscribe(func(st model.State[model.Todo]) {
		select {
		case snapshots <- st:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	last := store.Items()
	if err := a.printTodos(last); err != nil {
		return err
	}
	printed := 1

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for updates == 0 || printed < updates {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			store.ReadAll(query)
		case st := <-snapshots:
			if st.Loading || slices.Equal(st.Items, last) {
				continue
			}
			last = st.Items
			printed++
			if a.cfg.Output != outputJSON {
				fmt.Fprintf(a.out, "-- %s\n", time.Now().Format("15:04:05"))
			}
			if err := a.printTodos(last); err != nil {
				return err
			}
		}
	}
	return nil
}
