package rules

import (
	"strings"
	"testing"
)

const sampleRules = `
default_color: "#888888"
channels:
  - pattern: "Main.fActual*"
    unit: "mm"
    color: "#ff0000"
    scale: 0.001
  - pattern: "*.bRunning"
    color: "#00ff00"
  - pattern: "Axis1.nVelocity"
    unit: "mm/s"
    offset: -10
`

func TestParseDisplayRules(t *testing.T) {
	rules, err := ParseDisplayRulesFromReader(strings.NewReader(sampleRules))
	if err != nil {
		t.Fatalf("Failed to parse rules: %v", err)
	}

	if rules.DefaultColor != "#888888" {
		t.Errorf("DefaultColor = %q, want #888888", rules.DefaultColor)
	}
	if len(rules.Channels) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(rules.Channels))
	}
	if rules.Channels[0].Unit != "mm" || rules.Channels[0].Scale != 0.001 {
		t.Errorf("unexpected first rule: %+v", rules.Channels[0])
	}
	if rules.Channels[2].Offset != -10 {
		t.Errorf("Offset = %v, want -10", rules.Channels[2].Offset)
	}
}

func TestParseDisplayRules_Invalid(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := ParseDisplayRulesFromReader(strings.NewReader("channels: [")); err == nil {
			t.Error("Expected error for malformed YAML")
		}
	})

	t.Run("empty pattern", func(t *testing.T) {
		_, err := ParseDisplayRulesFromReader(strings.NewReader("channels:\n  - unit: mm\n"))
		if err == nil {
			t.Error("Expected error for rule without pattern")
		}
	})
}

func TestMatch(t *testing.T) {
	rules, err := ParseDisplayRulesFromReader(strings.NewReader(sampleRules))
	if err != nil {
		t.Fatalf("Failed to parse rules: %v", err)
	}

	cases := []struct {
		name    string
		match   bool
		pattern string
	}{
		{"Main.fActualPosition", true, "Main.fActual*"},
		{"Main.fActualVelocity", true, "Main.fActual*"},
		{"Conveyor.bRunning", true, "*.bRunning"},
		{"Axis1.nVelocity", true, "Axis1.nVelocity"},
		{"Axis1.nVelocityFiltered", false, ""},
		{"Main.fSetPosition", false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := Match(rules, tc.name)
			if ok != tc.match {
				t.Fatalf("Match(%q) = %v, want %v", tc.name, ok, tc.match)
			}
			if ok && rule.Pattern != tc.pattern {
				t.Errorf("matched pattern %q, want %q", rule.Pattern, tc.pattern)
			}
		})
	}
}

func TestMatchPattern_MiddleWildcard(t *testing.T) {
	if !matchPattern("Main.*Position", "Main.fActualPosition") {
		t.Error("middle wildcard should match")
	}
	if matchPattern("Main.*Position", "Axis.fActualPosition") {
		t.Error("prefix must still anchor")
	}
}
