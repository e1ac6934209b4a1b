// websocket.go - WebSocket upload channel for browsers on the machine network
package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/rules"
)

// WebSocket message types for the upload protocol
const (
	// Client -> Server messages
	MsgTypeUploadInit     = "upload:init"
	MsgTypeUploadChunk    = "upload:chunk"
	MsgTypeUploadComplete = "upload:complete"
	MsgTypeRulesUpload    = "rules:upload"
	MsgTypePing           = "ping"

	// Server -> Client messages
	MsgTypeAck        = "ack"
	MsgTypeProgress   = "progress"
	MsgTypeComplete   = "complete"
	MsgTypeError      = "error"
	MsgTypeProcessing = "processing"
	MsgTypePong       = "pong"
)

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// UploadInitPayload opens a chunked upload.
type UploadInitPayload struct {
	FileName    string `json:"fileName"`
	TotalChunks int    `json:"totalChunks"`
	TotalSize   int64  `json:"totalSize"`
	Encoding    string `json:"encoding,omitempty"` // "gzip", "none"
}

// UploadChunkPayload carries one base64 chunk.
type UploadChunkPayload struct {
	UploadID   string `json:"uploadId"`
	ChunkIndex int    `json:"chunkIndex"`
	Data       string `json:"data"`
}

// UploadCompletePayload finishes a chunked upload.
type UploadCompletePayload struct {
	UploadID string `json:"uploadId"`
	Encoding string `json:"encoding,omitempty"`
}

// FileUploadPayload carries a whole small file in a single message.
type FileUploadPayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// WSProgressResponse reports upload progress.
type WSProgressResponse struct {
	Type     string  `json:"type"`
	UploadID string  `json:"uploadId,omitempty"`
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// WSCompleteResponse reports a finished upload.
type WSCompleteResponse struct {
	Type     string           `json:"type"`
	UploadID string           `json:"uploadId,omitempty"`
	FileInfo *models.FileInfo `json:"fileInfo,omitempty"`
	Result   interface{}      `json:"result,omitempty"`
}

// WSErrorResponse reports a protocol or processing error.
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// wsUploadSession tracks an in-progress upload over one connection.
type wsUploadSession struct {
	ID             string
	FileName       string
	TotalChunks    int
	ReceivedChunks map[int]bool
	Chunks         [][]byte
	OriginalSize   int64
	Encoding       string
	CreatedAt      time.Time
}

// WebSocketHandler manages WebSocket connections for capture uploads.
type WebSocketHandler struct {
	handler    *Handler
	upgrader   websocket.Upgrader
	sessions   map[string]*wsUploadSession
	sessionsMu sync.RWMutex
}

// NewWebSocketHandler creates a new WebSocket upload handler.
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Air-gapped deployment, same-origin frontends only
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		sessions: make(map[string]*wsUploadSession),
	}
}

// HandleWebSocket upgrades the connection and runs the upload protocol loop.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected for upload")

	wsh.sendMessage(ws, WSMessage{
		Type:      "connected",
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeUploadInit:
			wsh.handleUploadInit(ws, msg)
		case MsgTypeUploadChunk:
			wsh.handleUploadChunk(ws, msg)
		case MsgTypeUploadComplete:
			wsh.handleUploadComplete(ws, msg)
		case MsgTypeRulesUpload:
			wsh.handleRulesUpload(ws, msg)
		default:
			wsh.sendError(ws, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Println("[WebSocket] Client disconnected")
	return nil
}

func (wsh *WebSocketHandler) handleUploadInit(ws *websocket.Conn, msg WSMessage) {
	var payload UploadInitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid init payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.TotalChunks <= 0 {
		wsh.sendError(ws, "totalChunks must be positive", "INVALID_PAYLOAD")
		return
	}

	sessionID := generateUploadID()
	session := &wsUploadSession{
		ID:             sessionID,
		FileName:       payload.FileName,
		TotalChunks:    payload.TotalChunks,
		ReceivedChunks: make(map[int]bool),
		Chunks:         make([][]byte, payload.TotalChunks),
		OriginalSize:   payload.TotalSize,
		Encoding:       payload.Encoding,
		CreatedAt:      time.Now(),
	}

	wsh.sessionsMu.Lock()
	wsh.sessions[sessionID] = session
	wsh.sessionsMu.Unlock()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeAck,
		ID:        sessionID,
		Timestamp: time.Now().UnixMilli(),
	})

	fmt.Printf("[WebSocket] Upload initialized: %s (%d chunks, %d bytes)\n",
		sessionID, payload.TotalChunks, payload.TotalSize)
}

func (wsh *WebSocketHandler) handleUploadChunk(ws *websocket.Conn, msg WSMessage) {
	var payload UploadChunkPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid chunk payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	wsh.sessionsMu.Lock()
	session, exists := wsh.sessions[payload.UploadID]
	wsh.sessionsMu.Unlock()

	if !exists {
		wsh.sendError(ws, "Upload session not found: "+payload.UploadID, "SESSION_NOT_FOUND")
		return
	}
	if payload.ChunkIndex < 0 || payload.ChunkIndex >= session.TotalChunks {
		wsh.sendError(ws, fmt.Sprintf("Chunk index %d out of range", payload.ChunkIndex), "INVALID_CHUNK")
		return
	}

	chunkData, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		wsh.sendError(ws, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	session.ReceivedChunks[payload.ChunkIndex] = true
	session.Chunks[payload.ChunkIndex] = chunkData

	received := len(session.ReceivedChunks)
	progress := float64(received) / float64(session.TotalChunks) * 100

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeProgress,
		ID:        payload.UploadID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Type:     MsgTypeProgress,
			UploadID: payload.UploadID,
			Progress: progress,
			Stage:    "uploading",
			Message:  fmt.Sprintf("Received chunk %d/%d", received, session.TotalChunks),
		}),
	})
}

func (wsh *WebSocketHandler) handleUploadComplete(ws *websocket.Conn, msg WSMessage) {
	var payload UploadCompletePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid complete payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	wsh.sessionsMu.Lock()
	session, exists := wsh.sessions[payload.UploadID]
	wsh.sessionsMu.Unlock()

	if !exists {
		wsh.sendError(ws, "Upload session not found: "+payload.UploadID, "SESSION_NOT_FOUND")
		return
	}

	if len(session.ReceivedChunks) != session.TotalChunks {
		wsh.sendError(ws, fmt.Sprintf("Missing chunks: got %d, expected %d",
			len(session.ReceivedChunks), session.TotalChunks), "INCOMPLETE_UPLOAD")
		return
	}

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeProcessing,
		ID:        payload.UploadID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Type:     MsgTypeProcessing,
			UploadID: payload.UploadID,
			Progress: 50,
			Stage:    "assembling",
			Message:  "Assembling file chunks...",
		}),
	})

	totalSize := 0
	for _, chunk := range session.Chunks {
		totalSize += len(chunk)
	}
	assembledData := make([]byte, 0, totalSize)
	for _, chunk := range session.Chunks {
		assembledData = append(assembledData, chunk...)
	}

	if payload.Encoding == "gzip" || session.Encoding == "gzip" {
		wsh.sendMessage(ws, WSMessage{
			Type:      MsgTypeProcessing,
			ID:        payload.UploadID,
			Timestamp: time.Now().UnixMilli(),
			Payload: mustJSON(WSProgressResponse{
				Type:     MsgTypeProcessing,
				UploadID: payload.UploadID,
				Progress: 75,
				Stage:    "decompressing",
				Message:  "Decompressing file...",
			}),
		})

		decompressed, err := decompressGzip(assembledData)
		if err != nil {
			wsh.sendError(ws, "Decompression failed: "+err.Error(), "DECOMPRESS_ERROR")
			return
		}
		assembledData = decompressed
	}

	info, err := wsh.handler.store.SaveBytes(session.FileName, assembledData)
	if err != nil {
		wsh.sendError(ws, "Failed to save file: "+err.Error(), "SAVE_ERROR")
		return
	}

	wsh.sessionsMu.Lock()
	delete(wsh.sessions, payload.UploadID)
	wsh.sessionsMu.Unlock()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeComplete,
		ID:        payload.UploadID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSCompleteResponse{
			Type:     MsgTypeComplete,
			UploadID: payload.UploadID,
			FileInfo: info,
		}),
	})

	fmt.Printf("[WebSocket] Upload complete: %s (%d bytes)\n", info.ID, info.Size)
}

func (wsh *WebSocketHandler) handleRulesUpload(ws *websocket.Conn, msg WSMessage) {
	var payload FileUploadPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid rules upload payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		wsh.sendError(ws, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	parsed, err := rules.ParseDisplayRulesFromReader(bytes.NewReader(decoded))
	if err != nil {
		wsh.sendError(ws, "Invalid YAML format: "+err.Error(), "INVALID_YAML")
		return
	}

	info, err := wsh.handler.store.SaveBytes(payload.Name, decoded)
	if err != nil {
		wsh.sendError(ws, "Failed to save rules file: "+err.Error(), "SAVE_ERROR")
		return
	}

	wsh.handler.rulesMu.Lock()
	wsh.handler.currentRulesID = info.ID
	wsh.handler.currentRules = parsed
	wsh.handler.rulesMu.Unlock()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeComplete,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSCompleteResponse{
			Type:     MsgTypeComplete,
			FileInfo: info,
			Result: models.RulesInfo{
				ID:         info.ID,
				Name:       info.Name,
				UploadedAt: info.UploadedAt.Format(time.RFC3339),
				RulesCount: len(parsed.Channels),
			},
		}),
	})

	fmt.Printf("[WebSocket] Rules uploaded: %s\n", info.ID)
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func generateUploadID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), time.Now().Nanosecond())
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
	return io.ReadAll(reader)
}
