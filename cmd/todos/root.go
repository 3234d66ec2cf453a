package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/todo-crud/internal/client"
	"github.com/vyrodovalexey/todo-crud/internal/crud"
	"github.com/vyrodovalexey/todo-crud/internal/logging"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

const storeName = "todos"

// app holds the state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	out    io.Writer
	cfg    settings
	logger *zap.Logger
	client *client.TodoClient
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "todos",
		Short: "todos manages a remote todo list through an opt-in CRUD store",
		Long: `todos drives a CRUD state store backed by a todo REST API in the
jsonplaceholder format. Only the operations listed in --ops are exposed;
invoking any other operation fails with "operation not enabled".

Every flag can also be set through a TODOS_ environment variable
(TODOS_BASE_URL, TODOS_OPS, ...) or a config file.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(out)

	if err := bindFlags(a.v, root); err != nil {
		panic(err)
	}

	root.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newAddCmd(a),
		newToggleCmd(a),
		newRmCmd(a),
		newDemoCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup resolves the settings and builds the logger and the API client.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := loadSettings(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, logging.EncodingConsole, "stderr")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	a.hookSignals()

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.APIKey))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(rate.Limit(cfg.RateLimit), 1))
	}

	c, err := client.New(cfg.BaseURL, opts...)
	if err != nil {
		return err
	}
	a.client = c
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	_ = a.logger.Sync()
	return nil
}

// hookSignals forwards crud store events to the debug log.
func (a *app) hookSignals() {
	logger := a.logger.Named("events")
	forward := func(event string) func(context.Context, *capitan.Event) {
		return func(_ context.Context, e *capitan.Event) {
			op, _ := crud.KeyOp.From(e)
			msg, _ := crud.KeyError.From(e)
			logger.Debug(event, zap.String("op", op), zap.String("error", msg))
		}
	}

	capitan.Hook(crud.OperationDispatched, forward("dispatched"))
	capitan.Hook(crud.OperationSucceeded, forward("succeeded"))
	capitan.Hook(crud.OperationFailed, forward("failed"))
	capitan.Hook(crud.OperationSuperseded, forward("superseded"))
	capitan.Hook(crud.OperationRejected, forward("rejected"))
}

// operations resolves the store operations enabled in cfg against the API
// client and applies the --max-id read-all filter.
func (a *app) operations(cfg crud.Config) (crud.Operations[int, model.Todo], error) {
	ops, err := crud.FromService[int, model.Todo](a.client, cfg)
	if err != nil {
		return ops, err
	}
	if maxID := a.cfg.MaxID; maxID > 0 {
		ops.ReadAll = crud.FilterReadAll(ops.ReadAll, func(todo model.Todo) bool {
			return todo.ID <= maxID
		})
	}
	return ops, nil
}

// newStore builds a store exposing the configured operations, seeded with
// initial.
func (a *app) newStore(ctx context.Context, initial model.State[model.Todo]) (*crud.Store[int, model.Todo], error) {
	return a.newStoreWith(ctx, a.cfg.Ops, initial)
}

func (a *app) newStoreWith(
	ctx context.Context,
	cfg crud.Config,
	initial model.State[model.Todo],
) (*crud.Store[int, model.Todo], error) {
	ops, err := a.operations(cfg)
	if err != nil {
		return nil, err
	}
	return crud.NewWithState(ops, initial,
		crud.WithName(storeName),
		crud.WithLogger(a.logger),
		crud.WithContext(ctx),
	), nil
}
