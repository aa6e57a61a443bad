package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *gorilla.Conn) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(HandleWebSocket(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, "connection", welcome.Type)
	return hub, conn
}

func read(t *testing.T, conn *gorilla.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func status(t *testing.T, env envelope) string {
	t.Helper()
	require.Equal(t, "status", env.Type)
	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body["status"]
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, conn := startHub(t)
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastEvent(models.Event{
		Type:  models.EventStage,
		Stage: &models.StageStatus{Stage: models.StageClient, State: models.StateActive, Status: "Sending Operation"},
	})

	env := read(t, conn)
	assert.Equal(t, "stage", env.Type)
	var e models.Event
	require.NoError(t, json.Unmarshal(env.Data, &e))
	assert.Equal(t, "Sending Operation", e.Stage.Status)
}

func TestHubPauseAndPing(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(models.WebSocketMessage{Type: "pause"}))
	assert.Equal(t, "paused", status(t, read(t, conn)))

	hub.BroadcastEvent(models.Event{Type: models.EventReset})

	require.NoError(t, conn.WriteJSON(models.WebSocketMessage{Type: "ping"}))
	assert.Equal(t, "pong", status(t, read(t, conn)))

	require.NoError(t, conn.WriteJSON(models.WebSocketMessage{Type: "resume"}))
	assert.Equal(t, "resumed", status(t, read(t, conn)))

	hub.BroadcastEvent(models.Event{Type: models.EventReset})
	assert.Equal(t, "reset", read(t, conn).Type)
}

func TestHubFilterByEventType(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(models.WebSocketMessage{
		Type:  "filter",
		Types: []models.EventType{models.EventCompleted},
	}))
	assert.Equal(t, "filters_updated", status(t, read(t, conn)))

	events := make(chan models.Event, 2)
	events <- models.Event{Type: models.EventLog, Log: &models.LogEntry{Message: "skipped"}}
	events <- models.Event{Type: models.EventCompleted, Completion: &models.Completion{Name: "GetUser"}}
	close(events)
	hub.Forward(context.Background(), events)

	assert.Equal(t, "completed", read(t, conn).Type)
}

func TestHubReportsConnectionChanges(t *testing.T) {
	counts := make(chan int, 4)
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub().OnConnectionsChanged(func(n int) { counts <- n })
	go hub.Run(ctx)

	srv := httptest.NewServer(HandleWebSocket(hub))
	defer srv.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 1, <-counts)
	cancel()
	assert.Equal(t, 0, <-counts)
}
