package models

import "time"

// FileInfo represents metadata about an uploaded capture file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "uploaded", "decoding", "decoded", "error"
	// Path is set only for files registered in place, outside the upload dir.
	Path string `json:"-"`
}
