package models

// SessionStatus represents the status of a decode session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusDecoding SessionStatus = "decoding"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// DecodeSession represents one capture file being decoded and served.
type DecodeSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"`           // 0-100
	FileName         string        `json:"fileName,omitempty"` // capture name from the file header
	ChannelCount     int           `json:"channelCount,omitempty"`
	SampleCount      int64         `json:"sampleCount,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	StartTime        int64         `json:"startTime,omitempty"` // Unix ms
	EndTime          int64         `json:"endTime,omitempty"`   // Unix ms
	// DuplicateChannels lists channel names that occurred more than once in
	// the file header. The decoder keeps the last occurrence; the repeats are
	// surfaced so the frontend can warn about a possibly corrupt capture.
	DuplicateChannels []string `json:"duplicateChannels,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// NewDecodeSession creates a new DecodeSession in pending status.
func NewDecodeSession(id, fileID string) *DecodeSession {
	return &DecodeSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
	}
}
