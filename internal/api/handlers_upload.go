// handlers_upload.go - Capture file upload and management endpoints
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/upload"
)

// HandleUploadFile accepts a capture file as base64 JSON and saves it to storage.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Data string `json:"data"` // Base64-encoded file content
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}

	if req.Name == "" || req.Data == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and data are required"})
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid base64 data"})
	}

	info, err := h.store.SaveBytes(req.Name, decoded)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("failed to save file: %v", err)})
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadChunk accepts a single chunk of a file as base64 JSON.
func (h *Handler) HandleUploadChunk(c echo.Context) error {
	var req struct {
		UploadID    string `json:"uploadId"`
		ChunkIndex  int    `json:"chunkIndex"`
		Data        string `json:"data"` // Base64-encoded chunk
		TotalChunks int    `json:"totalChunks"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}

	if req.UploadID == "" || req.Data == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "uploadId and data are required"})
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid base64 data"})
	}

	if err := h.store.SaveChunk(req.UploadID, req.ChunkIndex, bytes.NewReader(decoded)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("failed to save chunk: %v", err)})
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload starts async processing of uploaded chunks.
// Returns immediately with a job ID for tracking progress via SSE.
func (h *Handler) HandleCompleteUpload(c echo.Context) error {
	var req struct {
		UploadID       string `json:"uploadId"`
		Name           string `json:"name"`
		TotalChunks    int    `json:"totalChunks"`
		OriginalSize   int64  `json:"originalSize"`
		CompressedSize int64  `json:"compressedSize"`
		Encoding       string `json:"encoding"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.UploadID == "" || req.Name == "" || req.TotalChunks <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "uploadId, name, and totalChunks are required"})
	}

	job := h.uploadManager.StartJob(
		req.UploadID,
		req.Name,
		req.TotalChunks,
		req.OriginalSize,
		req.CompressedSize,
		req.Encoding,
	)

	fmt.Printf("[HandleCompleteUpload] Started async upload job %s for %s\n", job.ID, req.Name)

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// HandleUploadJobStream streams upload processing progress via Server-Sent Events.
func (h *Handler) HandleUploadJobStream(c echo.Context) error {
	jobID := c.Param("jobId")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	job, ok := h.uploadManager.GetJob(jobID)
	if !ok {
		data, _ := json.Marshal(map[string]string{"error": "job not found"})
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			job, ok = h.uploadManager.GetJob(jobID)
			if !ok {
				data, _ := json.Marshal(map[string]string{"error": "job not found"})
				fmt.Fprintf(c.Response(), "data: %s\n\n", data)
				c.Response().Flush()
				return nil
			}

			data, err := json.Marshal(map[string]interface{}{
				"jobId":         job.ID,
				"status":        job.Status,
				"progress":      job.Progress,
				"stage":         job.Stage,
				"stageProgress": job.StageProgress,
				"fileInfo":      job.FileInfo,
				"error":         job.Error,
			})
			if err != nil {
				continue
			}

			fmt.Fprintf(c.Response(), "data: %s\n\n", data)
			c.Response().Flush()

			if job.Status == upload.StatusComplete || job.Status == upload.StatusError {
				return nil
			}
		}
	}
}

// HandleGetRecentFiles returns a list of recently uploaded capture files.
func (h *Handler) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(50) // Fetch more to allow for filtering
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list files"})
	}

	var captures []*models.FileInfo
	for _, f := range files {
		nameLower := strings.ToLower(f.Name)
		// Exclude display rules files
		if !strings.HasSuffix(nameLower, ".yaml") && !strings.HasSuffix(nameLower, ".yml") {
			captures = append(captures, f)
		}
	}

	if len(captures) > 20 {
		captures = captures[:20]
	}

	return c.JSON(http.StatusOK, captures)
}

// HandleGetFile returns metadata for a specific file.
func (h *Handler) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found"})
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a file from storage.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.Delete(id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found or could not be deleted"})
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file.
func (h *Handler) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found or could not be renamed"})
	}

	return c.JSON(http.StatusOK, info)
}
