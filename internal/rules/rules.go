// Package rules loads YAML display rule files that map channel name patterns
// to units, colors and extra scaling for the frontend.
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scope-visualizer/backend/internal/models"
)

// ParseDisplayRules parses a YAML display rules file.
func ParseDisplayRules(filePath string) (*models.DisplayRules, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseDisplayRulesFromReader(file)
}

// ParseDisplayRulesFromReader parses display rules from an io.Reader.
func ParseDisplayRulesFromReader(r io.Reader) (*models.DisplayRules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var rules models.DisplayRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing display rules: %w", err)
	}

	for i, rule := range rules.Channels {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %d has an empty pattern", i)
		}
	}

	return &rules, nil
}

// Match returns the first rule whose pattern matches name. Patterns support a
// single level of * wildcards, e.g. "Main.*" or "*.fActual*".
func Match(rules *models.DisplayRules, name string) (*models.ChannelRule, bool) {
	for i := range rules.Channels {
		if matchPattern(rules.Channels[i].Pattern, name) {
			return &rules.Channels[i], true
		}
	}
	return nil, false
}

func matchPattern(pattern, name string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == name
	}

	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(name, last) {
		return false
	}
	name = name[:len(name)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(name, part)
		if idx < 0 {
			return false
		}
		name = name[idx+len(part):]
	}
	return true
}
