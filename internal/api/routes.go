// routes.go - Route registration
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/session"
	"github.com/scope-visualizer/backend/internal/storage"
	"github.com/scope-visualizer/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr *session.Manager
	UploadMgr  *upload.Manager
	Version    string
}

// NewHandlerFromDeps creates the API handler from a dependency set.
func NewHandlerFromDeps(deps *Dependencies) *Handler {
	return NewHandler(deps.Store, deps.SessionMgr, deps.UploadMgr, deps.Version)
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	// Health check
	e.GET("/health", h.HandleHealth)

	// File upload routes
	files := e.Group("/api/files")
	files.POST("/upload", h.HandleUploadFile)
	files.POST("/upload/chunk", h.HandleUploadChunk)
	files.POST("/upload/complete", h.HandleCompleteUpload)
	files.GET("/upload/jobs/:jobId/stream", h.HandleUploadJobStream)
	files.GET("/recent", h.HandleGetRecentFiles)
	files.GET("/:id", h.HandleGetFile)
	files.DELETE("/:id", h.HandleDeleteFile)
	files.PUT("/:id", h.HandleRenameFile)

	// Decode session routes
	decode := e.Group("/api/decode")
	decode.POST("", h.HandleStartDecode)
	decode.GET("/:sessionId/status", h.HandleDecodeStatus)
	decode.GET("/:sessionId/progress", h.HandleDecodeProgressStream)
	decode.POST("/:sessionId/keepalive", h.HandleSessionKeepAlive)
	decode.DELETE("/:sessionId", h.HandleDeleteSession)
	decode.GET("/:sessionId/channels", h.HandleGetChannels)
	decode.GET("/:sessionId/samples", h.HandleGetSamples)
	decode.GET("/:sessionId/samples/msgpack", h.HandleGetSamplesMsgpack)
	decode.GET("/:sessionId/values", h.HandleGetValuesAtTime)
	decode.POST("/:sessionId/resample", h.HandleResample)

	// Display rules routes
	rulesGroup := e.Group("/api/rules")
	rulesGroup.POST("/upload", h.HandleUploadRules)
	rulesGroup.GET("", h.HandleGetRules)
}

// RegisterWebSocketRoutes registers the WebSocket upload endpoint
func RegisterWebSocketRoutes(e *echo.Echo, h *Handler) {
	wsh := NewWebSocketHandler(h)
	e.GET("/api/ws/uploads", wsh.HandleWebSocket)
}
