package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/churn-dashboard/backend/internal/dashboard"
)

// WebSocket message types for the dashboard event channel
const (
	// Client -> Server messages
	MsgTypeRecordSelect = "record:select"
	MsgTypeBatchUpload  = "batch:upload"
	MsgTypeBatchClear   = "batch:clear"
	MsgTypePing         = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeView      = "view"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Record selection payload
type RecordSelectPayload struct {
	Index int `json:"index"`
}

// Batch upload payload (single message, base64 file content)
type BatchUploadPayload struct {
	Name     string `json:"name"`
	Data     string `json:"data"`
	Encoding string `json:"encoding,omitempty"` // "gzip", "none"
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler runs the dashboard event reducer over a WebSocket.
// Each connection owns its view; the application state is shared.
type WebSocketHandler struct {
	state     *dashboard.State
	upgrader  websocket.Upgrader
	readLimit int64
	logger    *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. maxMessageKB bounds
// a single client message, which includes base64 batch uploads.
func NewWebSocketHandler(state *dashboard.State, maxMessageKB int, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		state: state,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: int64(maxMessageKB) * 1024,
		logger:    logger.WithGroup("ws"),
	}
}

// HandleWebSocket upgrades the connection and applies client events to a
// per-connection view, answering every event with the next view.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.readLimit > 0 {
		ws.SetReadLimit(wsh.readLimit)
	}

	wsh.logger.Info("client connected", "remote", c.RealIP())

	view := wsh.state.InitialView()
	wsh.sendMessage(ws, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})
	wsh.sendView(ws, "", view)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Warn("connection error", "error", err)
			}
			break
		}

		if msg.Type == MsgTypePing {
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
			continue
		}

		event, err := decodeEvent(msg)
		if err != nil {
			wsh.sendError(ws, msg.ID, err)
			continue
		}
		view = dashboard.Reduce(wsh.state, view, event)
		wsh.sendView(ws, msg.ID, view)
	}

	wsh.logger.Info("client disconnected")
	return nil
}

// eventError is a protocol error reported back to the client.
type eventError struct {
	code    string
	message string
}

func (e *eventError) Error() string { return e.message }

// decodeEvent converts a client message into a reducer event.
func decodeEvent(msg WSMessage) (dashboard.Event, error) {
	switch msg.Type {
	case MsgTypeRecordSelect:
		var p RecordSelectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, &eventError{"INVALID_PAYLOAD", "Invalid record payload: " + err.Error()}
		}
		return dashboard.RecordSelected{Index: p.Index}, nil

	case MsgTypeBatchUpload:
		var p BatchUploadPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, &eventError{"INVALID_PAYLOAD", "Invalid upload payload: " + err.Error()}
		}
		if p.Name == "" {
			return nil, &eventError{"INVALID_PAYLOAD", "Upload name is required"}
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, &eventError{"INVALID_PAYLOAD", "Invalid base64 data: " + err.Error()}
		}
		if p.Encoding == "gzip" {
			if data, err = decompressGzip(data); err != nil {
				return nil, &eventError{"INVALID_PAYLOAD", "Invalid gzip data: " + err.Error()}
			}
		}
		return dashboard.BatchUploaded{Name: p.Name, Data: data}, nil

	case MsgTypeBatchClear:
		return dashboard.BatchCleared{}, nil
	}
	return nil, &eventError{"INVALID_TYPE", "Unknown message type: " + msg.Type}
}

func (wsh *WebSocketHandler) sendView(ws *websocket.Conn, id string, view dashboard.View) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeView,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(view),
	})
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		wsh.logger.Warn("failed to send message", "type", msg.Type, "error", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, id string, err error) {
	code := "INVALID_MESSAGE"
	if ee, ok := err.(*eventError); ok {
		code = ee.code
	}
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: err.Error(),
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return out, nil
}
