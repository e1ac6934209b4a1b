// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// UploadHandler handles capture file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleUploadJobStream(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// DecodeHandler handles decode session operations
type DecodeHandler interface {
	HandleStartDecode(c echo.Context) error
	HandleDecodeStatus(c echo.Context) error
	HandleDecodeProgressStream(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
}

// ChannelHandler handles channel metadata and sample queries
type ChannelHandler interface {
	HandleGetChannels(c echo.Context) error
	HandleGetSamples(c echo.Context) error
	HandleGetSamplesMsgpack(c echo.Context) error
	HandleGetValuesAtTime(c echo.Context) error
	HandleResample(c echo.Context) error
}

// RulesHandler handles display rules operations
type RulesHandler interface {
	HandleUploadRules(c echo.Context) error
	HandleGetRules(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
