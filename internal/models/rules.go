package models

// DisplayRules defines the YAML configuration for per-channel display
// overrides: units, colors and extra scaling applied by the frontend.
type DisplayRules struct {
	DefaultColor string        `json:"defaultColor" yaml:"default_color"`
	Channels     []ChannelRule `json:"channels" yaml:"channels"`
}

// ChannelRule maps channel name patterns (with * wildcards) to display
// attributes.
type ChannelRule struct {
	Pattern string  `json:"pattern" yaml:"pattern"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Color   string  `json:"color,omitempty" yaml:"color,omitempty"`
	Scale   float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Offset  float64 `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// RulesInfo contains metadata about an uploaded rules file.
type RulesInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UploadedAt string `json:"uploadedAt"`
	RulesCount int    `json:"rulesCount"`
}
