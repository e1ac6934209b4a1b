package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/scope-visualizer/backend/internal/session"
	"github.com/scope-visualizer/backend/internal/storage"
	"github.com/scope-visualizer/backend/internal/testutil"
	"github.com/scope-visualizer/backend/internal/upload"
)

func newTestHandler(t *testing.T) (*echo.Echo, *Handler) {
	t.Helper()
	e := echo.New()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	sessionMgr := session.NewManagerWithTempDir(t.TempDir())
	uploadMgr := upload.NewManager(store)
	return e, NewHandler(store, sessionMgr, uploadMgr, "test")
}

func jsonRequest(e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleHealth(t *testing.T) {
	e, h := newTestHandler(t)

	c, rec := jsonRequest(e, http.MethodGet, "/health", nil)
	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"version":"test"`)
	}
}

func TestUploadFileLifecycle(t *testing.T) {
	e, h := newTestHandler(t)

	capture := testutil.SimpleSVBFile("Upload", []uint32{0, 10_000_000}, []float64{1, 2}).Encode()

	// 1. Upload as base64 JSON
	c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload", map[string]string{
		"name": "motion.svb",
		"data": base64.StdEncoding.EncodeToString(capture),
	})
	if !assert.NoError(t, h.HandleUploadFile(c)) {
		return
	}
	assert.Equal(t, http.StatusCreated, rec.Code)

	var info struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "motion.svb", info.Name)
	assert.Equal(t, int64(len(capture)), info.Size)

	// 2. Recent files lists it
	c, rec = jsonRequest(e, http.MethodGet, "/api/files/recent", nil)
	if assert.NoError(t, h.HandleGetRecentFiles(c)) {
		assert.Contains(t, rec.Body.String(), info.ID)
	}

	// 3. Get by ID
	c, rec = jsonRequest(e, http.MethodGet, "/api/files/"+info.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleGetFile(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// 4. Rename
	c, rec = jsonRequest(e, http.MethodPut, "/api/files/"+info.ID, map[string]string{"name": "renamed.svb"})
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleRenameFile(c)) {
		assert.Contains(t, rec.Body.String(), `"name":"renamed.svb"`)
	}

	// 5. Delete
	c, rec = jsonRequest(e, http.MethodDelete, "/api/files/"+info.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleDeleteFile(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	c, rec = jsonRequest(e, http.MethodGet, "/api/files/"+info.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleGetFile(c)) {
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestUploadFile_Invalid(t *testing.T) {
	e, h := newTestHandler(t)

	t.Run("missing fields", func(t *testing.T) {
		c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload", map[string]string{"name": "x.svb"})
		if assert.NoError(t, h.HandleUploadFile(c)) {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload", map[string]string{
			"name": "x.svb",
			"data": "!!not-base64!!",
		})
		if assert.NoError(t, h.HandleUploadFile(c)) {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})
}

func TestRecentFiles_ExcludesRulesFiles(t *testing.T) {
	e, h := newTestHandler(t)

	for _, name := range []string{"capture.svb", "rules.yaml"} {
		c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload", map[string]string{
			"name": name,
			"data": base64.StdEncoding.EncodeToString([]byte("payload")),
		})
		assert.NoError(t, h.HandleUploadFile(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	c, rec := jsonRequest(e, http.MethodGet, "/api/files/recent", nil)
	if assert.NoError(t, h.HandleGetRecentFiles(c)) {
		assert.Contains(t, rec.Body.String(), "capture.svb")
		assert.NotContains(t, rec.Body.String(), "rules.yaml")
	}
}

func TestRulesUpload(t *testing.T) {
	e, h := newTestHandler(t)

	yaml := "default_color: \"#123456\"\nchannels:\n  - pattern: \"Main.*\"\n    unit: mm\n"

	// 1. Initially empty
	c, rec := jsonRequest(e, http.MethodGet, "/api/rules", nil)
	if assert.NoError(t, h.HandleGetRules(c)) {
		assert.Contains(t, rec.Body.String(), `"channels":[]`)
	}

	// 2. Upload rules
	c, rec = jsonRequest(e, http.MethodPost, "/api/rules/upload", map[string]string{
		"name": "rules.yaml",
		"data": base64.StdEncoding.EncodeToString([]byte(yaml)),
	})
	if assert.NoError(t, h.HandleUploadRules(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"rulesCount":1`)
	}

	// 3. Active rules reflect the upload
	c, rec = jsonRequest(e, http.MethodGet, "/api/rules", nil)
	if assert.NoError(t, h.HandleGetRules(c)) {
		assert.Contains(t, rec.Body.String(), `"defaultColor":"#123456"`)
		assert.Contains(t, rec.Body.String(), `"name":"rules.yaml"`)
	}

	// 4. Invalid YAML rejected
	c, rec = jsonRequest(e, http.MethodPost, "/api/rules/upload", map[string]string{
		"name": "bad.yaml",
		"data": base64.StdEncoding.EncodeToString([]byte("channels: [")),
	})
	if assert.NoError(t, h.HandleUploadRules(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestUploadFile_StorageFailure(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	store.FailSave = errors.New("disk full")
	sessionMgr := session.NewManagerWithTempDir(t.TempDir())
	h := NewHandler(store, sessionMgr, upload.NewManager(store), "test")

	c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload", map[string]string{
		"name": "x.svb",
		"data": base64.StdEncoding.EncodeToString([]byte("payload")),
	})
	if assert.NoError(t, h.HandleUploadFile(c)) {
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
}

func TestChunkedUploadViaAPI(t *testing.T) {
	e, h := newTestHandler(t)

	capture := testutil.SimpleSVBFile("Chunked", []uint32{0, 10_000_000}, []float64{1, 2}).Encode()
	half := len(capture) / 2

	for i, chunk := range [][]byte{capture[:half], capture[half:]} {
		c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload/chunk", map[string]interface{}{
			"uploadId":   "up-1",
			"chunkIndex": i,
			"data":       base64.StdEncoding.EncodeToString(chunk),
		})
		if assert.NoError(t, h.HandleUploadChunk(c)) {
			assert.Equal(t, http.StatusAccepted, rec.Code)
		}
	}

	c, rec := jsonRequest(e, http.MethodPost, "/api/files/upload/complete", map[string]interface{}{
		"uploadId":     "up-1",
		"name":         "chunked.svb",
		"totalChunks":  2,
		"originalSize": len(capture),
		"encoding":     "binary",
	})
	if assert.NoError(t, h.HandleCompleteUpload(c)) {
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"jobId"`)
	}
}
