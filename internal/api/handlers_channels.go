// handlers_channels.go - Channel metadata and sample query endpoints
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/scope-visualizer/backend/internal/models"
)

// HandleGetChannels returns the channel table of a completed session.
func (h *Handler) HandleGetChannels(c echo.Context) error {
	id := c.Param("sessionId")
	channels, ok := h.session.GetChannels(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found or not complete"})
	}
	h.session.TouchSession(id)
	return c.JSON(http.StatusOK, channels)
}

// querySamples parses the shared window query parameters and runs the query.
func (h *Handler) querySamples(c echo.Context) (*models.SampleBatch, *APIError) {
	id := c.Param("sessionId")
	channel := c.QueryParam("channel")
	if channel == "" {
		return nil, NewBadRequestError("channel is required", nil)
	}

	start, err := strconv.ParseFloat(c.QueryParam("start"), 64)
	if err != nil {
		start = 0
	}
	end, err := strconv.ParseFloat(c.QueryParam("end"), 64)
	if err != nil {
		end = start + 3600 // Default to one hour past start
	}
	if end < start {
		return nil, NewBadRequestError("end must not be before start", nil)
	}

	maxPoints := h.maxQueryPoints
	if mp, err := strconv.Atoi(c.QueryParam("maxPoints")); err == nil && mp > 0 {
		if mp < maxPoints {
			maxPoints = mp
		}
	}

	ds, ok := h.session.GetStore(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}

	queryStart := time.Now()
	batch, err := ds.QueryWindow(c.Request().Context(), channel, start, end, maxPoints)
	if err != nil {
		return nil, NewInternalError("sample query failed", err)
	}

	h.session.TouchSession(id)
	fmt.Printf("[API] QueryWindow: session=%s channel=%s window=[%g, %g] -> %d/%d points in %v\n",
		id[:8], channel, start, end, len(batch.Points), batch.Total, time.Since(queryStart))

	return batch, nil
}

// HandleGetSamples returns a windowed, optionally decimated sample batch as JSON.
func (h *Handler) HandleGetSamples(c echo.Context) error {
	batch, apiErr := h.querySamples(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}
	return c.JSON(http.StatusOK, batch)
}

// HandleGetSamplesMsgpack returns a sample batch in MessagePack format,
// noticeably smaller than JSON for dense float arrays.
func (h *Handler) HandleGetSamplesMsgpack(c echo.Context) error {
	batch, apiErr := h.querySamples(c)
	if apiErr != nil {
		return RespondWithError(c, apiErr)
	}

	data, err := msgpack.Marshal(batch)
	if err != nil {
		return RespondWithError(c, NewInternalError("failed to encode msgpack", err))
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetValuesAtTime returns, per channel, the value of the last sample at
// or before the cursor time. Used for the plot cursor readout.
func (h *Handler) HandleGetValuesAtTime(c echo.Context) error {
	id := c.Param("sessionId")

	t, err := strconv.ParseFloat(c.QueryParam("t"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid time"})
	}

	var channels []string
	if channelsParam := c.QueryParam("channels"); channelsParam != "" {
		channels = strings.Split(channelsParam, ",")
	}

	ds, ok := h.session.GetStore(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found or not complete"})
	}

	values, err := ds.ValuesAtTime(c.Request().Context(), channels, t)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("query failed: %v", err)})
	}

	h.session.TouchSession(id)
	return c.JSON(http.StatusOK, values)
}

// HandleResample projects channels onto a reference channel's time axis by
// linear interpolation, so channels sampled by different PLC tasks can be
// compared point by point.
func (h *Handler) HandleResample(c echo.Context) error {
	id := c.Param("sessionId")

	var req struct {
		Reference string   `json:"reference"`
		Channels  []string `json:"channels"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Reference == "" || len(req.Channels) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reference and channels are required"})
	}

	ref, err := h.session.GetChannel(id, req.Reference)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("reference channel: %v", err)})
	}
	axis := ref.Time()

	resampled := make(map[string][]float64, len(req.Channels))
	for _, name := range req.Channels {
		ch, err := h.session.GetChannel(id, name)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("channel: %v", err)})
		}
		resampled[name] = ch.Interpolate(axis)
	}

	h.session.TouchSession(id)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reference": req.Reference,
		"time":      axis,
		"channels":  resampled,
	})
}
