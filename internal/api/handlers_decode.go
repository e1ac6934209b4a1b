// handlers_decode.go - Decode session endpoints
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/models"
)

// HandleStartDecode starts a decode session for an uploaded capture.
func (h *Handler) HandleStartDecode(c echo.Context) error {
	var req struct {
		FileID string `json:"fileId"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.FileID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "fileId is required"})
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("file not found: %s", req.FileID)})
	}

	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("failed to get file path for: %s", req.FileID)})
	}

	sess, err := h.session.StartSession(info.ID, path)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("failed to start session: %v", err)})
	}

	h.store.SetStatus(info.ID, "decoding")

	return c.JSON(http.StatusAccepted, sess)
}

// HandleDecodeStatus returns the status of a decode session.
func (h *Handler) HandleDecodeStatus(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.session.GetSession(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	// Touch session to prevent cleanup while being viewed
	h.session.TouchSession(id)

	if sess.Status == models.SessionStatusComplete {
		h.store.SetStatus(sess.FileID, "decoded")
	} else if sess.Status == models.SessionStatusError {
		h.store.SetStatus(sess.FileID, "error")
	}

	return c.JSON(http.StatusOK, sess)
}

// HandleDecodeProgressStream streams decode progress via SSE so the frontend
// gets smooth transitions without polling.
func (h *Handler) HandleDecodeProgressStream(c echo.Context) error {
	id := c.Param("sessionId")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	if _, ok := h.session.GetSession(id); !ok {
		data, _ := json.Marshal(map[string]string{"error": "session not found"})
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1.0
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			sess, ok := h.session.GetSession(id)
			if !ok {
				data, _ := json.Marshal(map[string]string{"error": "session not found"})
				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
				return nil
			}

			if sess.Progress != lastProgress {
				lastProgress = sess.Progress

				data, err := json.Marshal(map[string]interface{}{
					"status":       sess.Status,
					"progress":     sess.Progress,
					"channelCount": sess.ChannelCount,
					"sampleCount":  sess.SampleCount,
					"error":        sess.Error,
				})
				if err != nil {
					continue
				}

				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
			}

			if sess.Status == models.SessionStatusComplete || sess.Status == models.SessionStatusError {
				return nil
			}
		}
	}
}

// HandleSessionKeepAlive allows clients to explicitly keep a session alive.
// Useful for long-running plot views where the user may not be making data
// requests but is still actively viewing the session.
func (h *Handler) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.session.TouchSession(id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDeleteSession evicts a decode session and frees its resources.
func (h *Handler) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.session.DeleteSession(id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
