// Package models contains domain types for the Scope Visualizer backend.
package models

import "time"

// ChannelInfo is the API view of one decoded channel's header.
type ChannelInfo struct {
	Name          string  `json:"name"`
	NetID         string  `json:"netId"`
	Port          uint64  `json:"port"`
	SamplePeriodS float64 `json:"samplePeriodS"` // seconds
	SymbolBased   bool    `json:"symbolBased"`
	SymbolName    string  `json:"symbolName,omitempty"`
	Comment       string  `json:"comment,omitempty"`
	DataType      string  `json:"dataType"`
	SampleCount   int64   `json:"sampleCount"`
	Offset        float64 `json:"offset"`
	Scale         float64 `json:"scale"`
	// DurationS is the unwrapped span of the channel's time axis in seconds.
	DurationS float64 `json:"durationS"`
}

// SamplePoint is one (time, value) pair of a channel, time in seconds since
// the capture start.
type SamplePoint struct {
	Time  float64 `json:"t" msgpack:"t"`
	Value float64 `json:"v" msgpack:"v"`
}

// SampleBatch is a window of channel samples, possibly decimated for display.
type SampleBatch struct {
	Channel   string        `json:"channel" msgpack:"channel"`
	Points    []SamplePoint `json:"points" msgpack:"points"`
	Total     int           `json:"total" msgpack:"total"`         // samples in the queried window before decimation
	Decimated bool          `json:"decimated" msgpack:"decimated"` // true when min-max bucketing was applied
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
