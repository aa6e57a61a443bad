package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/your-username/appsync-flow-simulator/internal/config"
	"github.com/your-username/appsync-flow-simulator/internal/models"
)

type watchOptions struct {
	url   string
	types []string
}

func newWatchCmd() *cobra.Command {
	o := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the events of a running simulator server",
		Example: `  appsync-sim watch
  appsync-sim watch --types completed,feed
  appsync-sim watch --url ws://sim.internal:20002/api/v1/ws`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.url == "" {
				u := url.URL{Scheme: "ws", Host: "localhost:" + config.Load().Server.Port, Path: "/api/v1/ws"}
				o.url = u.String()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.url, "url", "", "event stream URL (default ws://localhost:$PORT/api/v1/ws)")
	f.StringSliceVar(&o.types, "types", nil, "only stream these event types, e.g. stage,log,completed")
	return cmd
}

// watch renders the server's event stream until ctx is done or the server
// closes the connection
func watch(ctx context.Context, out io.Writer, o *watchOptions) error {
	types := make([]models.EventType, 0, len(o.types))
	for _, t := range o.types {
		types = append(types, models.EventType(strings.TrimSpace(t)))
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, o.url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", o.url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	if len(types) > 0 {
		if err := conn.WriteJSON(models.WebSocketMessage{Type: "filter", Types: types}); err != nil {
			return fmt.Errorf("sending filter: %w", err)
		}
	}

	renderer := NewRenderer(out)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			fmt.Fprintf(out, "unreadable message: %v\n", err)
			continue
		}

		switch msg.Type {
		case "connection", "status":
			var status map[string]string
			if err := json.Unmarshal(msg.Data, &status); err == nil {
				fmt.Fprintln(out, renderer.faint(strings.TrimSpace(status["status"]+" "+status["message"])))
			}
		default:
			var e models.Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				fmt.Fprintf(out, "unreadable %s event: %v\n", msg.Type, err)
				continue
			}
			renderer.Render(e)
		}
	}
}
