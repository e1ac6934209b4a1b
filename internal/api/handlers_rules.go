// handlers_rules.go - Display rules endpoints
package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/rules"
)

// HandleUploadRules accepts a YAML display rules file as base64 JSON and sets
// it as the active rules.
func (h *Handler) HandleUploadRules(c echo.Context) error {
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

	// Parse the YAML to validate it before saving.
	parsed, err := rules.ParseDisplayRulesFromReader(bytes.NewReader(decoded))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid YAML format: %v", err)})
	}

	info, err := h.store.SaveBytes(req.Name, decoded)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("failed to save rules file: %v", err)})
	}

	h.rulesMu.Lock()
	h.currentRulesID = info.ID
	h.currentRules = parsed
	h.rulesMu.Unlock()

	return c.JSON(http.StatusCreated, models.RulesInfo{
		ID:         info.ID,
		Name:       info.Name,
		UploadedAt: info.UploadedAt.Format(time.RFC3339),
		RulesCount: len(parsed.Channels),
	})
}

// HandleGetRules returns the currently active display rules.
func (h *Handler) HandleGetRules(c echo.Context) error {
	h.rulesMu.RLock()
	rulesID, current := h.currentRulesID, h.currentRules
	h.rulesMu.RUnlock()

	if rulesID == "" || current == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"defaultColor": "#D3D3D3",
			"channels":     []interface{}{},
		})
	}

	name := "Unknown"
	if info, err := h.store.Get(rulesID); err == nil {
		name = info.Name
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":           rulesID,
		"name":         name,
		"defaultColor": current.DefaultColor,
		"channels":     current.Channels,
	})
}
