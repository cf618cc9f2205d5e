// websocket.go - WebSocket streaming of run progress events
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing      = "ping"
	MsgTypeSubscribe = "subscribe"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

// WSMessage is the envelope for all WebSocket traffic
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SubscribePayload narrows the stream to one run
type SubscribePayload struct {
	RunID string `json:"runId"`
}

// WebSocketHandler streams run progress events to connected clients
type WebSocketHandler struct {
	runMgr   RunManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new progress stream handler
func NewWebSocketHandler(runMgr RunManager) *WebSocketHandler {
	return &WebSocketHandler{
		runMgr: runMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
	}
}

// HandleWebSocket upgrades the connection and forwards progress events until
// the client disconnects
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	events, cancel := wsh.runMgr.Subscribe()
	defer cancel()

	wsh.sendMessage(ws, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	// Optional filter from the query string; empty streams everything.
	runFilter := c.QueryParam("runId")

	// Reader goroutine: pings and subscribe messages in, closure signals out.
	done := make(chan struct{})
	subscribeCh := make(chan string, 4)
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					fmt.Printf("[WebSocket] Connection error: %v\n", err)
				}
				return
			}
			switch msg.Type {
			case MsgTypePing:
				wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
			case MsgTypeSubscribe:
				var payload SubscribePayload
				if err := json.Unmarshal(msg.Payload, &payload); err == nil {
					// The main loop may already be gone; never block the reader.
					select {
					case subscribeCh <- payload.RunID:
					default:
					}
				}
			}
		}
	}()

	for {
		select {
		case runID := <-subscribeCh:
			runFilter = runID
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if runFilter != "" && event.RunID != runFilter {
				continue
			}
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypeProgress,
				Payload:   mustJSON(event),
				Timestamp: time.Now().UnixMilli(),
			})
		case <-done:
			return nil
		}
	}
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
