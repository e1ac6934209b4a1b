package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/rules"
	"github.com/scope-visualizer/backend/internal/session"
	"github.com/scope-visualizer/backend/internal/storage"
	"github.com/scope-visualizer/backend/internal/upload"
)

// DefaultMaxQueryPoints caps sample windows when the client does not ask for
// a specific resolution.
const DefaultMaxQueryPoints = 4000

// Handler handles API requests.
type Handler struct {
	store         storage.Store
	session       *session.Manager
	uploadManager *upload.Manager
	version       string

	maxQueryPoints int

	rulesMu        sync.RWMutex
	currentRulesID string
	currentRules   *models.DisplayRules
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, session *session.Manager, uploadMgr *upload.Manager, version string) *Handler {
	return &Handler{
		store:          store,
		session:        session,
		uploadManager:  uploadMgr,
		version:        version,
		maxQueryPoints: DefaultMaxQueryPoints,
	}
}

// SetMaxQueryPoints overrides the default sample window cap.
func (h *Handler) SetMaxQueryPoints(n int) {
	if n > 0 {
		h.maxQueryPoints = n
	}
}

// LoadDefaultRules loads the default display rules file if it exists.
func (h *Handler) LoadDefaultRules(rulesDir string) error {
	rulesPath := rulesDir + "/rules.yaml"
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		return nil
	}

	parsed, err := rules.ParseDisplayRules(rulesPath)
	if err != nil {
		return fmt.Errorf("failed to parse default rules: %w", err)
	}

	h.rulesMu.Lock()
	h.currentRulesID = "default:rules.yaml"
	h.currentRules = parsed
	h.rulesMu.Unlock()

	fmt.Printf("[Rules] Loaded default display rules (%d rules)\n", len(parsed.Channels))
	return nil
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"sessions": h.session.Len(),
	})
}
