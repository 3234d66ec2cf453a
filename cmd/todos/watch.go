package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/client"
	"github.com/vyrodovalexey/todo-crud/internal/model"
)

const watchPath = "/ws"

func newWatchCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream change events from the local todo API",
		Long: `Watch subscribes to the websocket change feed of a todo API started with
the server binary and prints every created, updated and deleted event.
It stops after --count events or on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), count)
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "stop after this many change events, 0 to run until interrupted")
	return cmd
}

// watchURL derives the websocket feed URL from the API base URL.
func watchURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", client.ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + watchPath
	return u.String(), nil
}

func (a *app) watch(ctx context.Context, count int) error {
	target, err := watchURL(a.cfg.BaseURL)
	if err != nil {
		return err
	}

	header := http.Header{}
	if a.cfg.APIKey != "" {
		header.Set(client.APIKeyHeader, a.cfg.APIKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.logger.Info("watching changes", zap.String("url", target))

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	seen := 0
	for count == 0 || seen < count {
		var event model.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if event.Type == model.ChangeTypeHello {
			continue
		}
		seen++
		if err := a.printEvent(event); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printEvent(event model.ChangeEvent) error {
	if a.cfg.Output == outputJSON {
		return a.printJSON(event)
	}
	line := fmt.Sprintf("%s %-7s %d", event.Timestamp.Format("15:04:05"), event.Type, event.ID)
	if event.Todo != nil {
		line = fmt.Sprintf("%s %-7s %s", event.Timestamp.Format("15:04:05"), event.Type, formatTodo(*event.Todo))
	}
	_, err := fmt.Fprintln(a.out, line)
	return err
}
