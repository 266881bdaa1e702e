// Package aliasrule maps canonical speaker names ("Speaker 1") onto
// operator-supplied display names ("Alice") after consolidation. Rules live
// in YAML files and are applied by the ingest layer; the engine itself never
// sees them.
package aliasrule

import (
	"fmt"
	"strings"

	"github.com/cleanscribe/cleanscribe/pkg/transcript"
)

// RuleSet is a YAML-mappable collection of alias rules for one context,
// typically a device or room.
type RuleSet struct {
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules"       json:"rules"`
}

// Rule renames the canonical speaker that a raw label resolved to.
type Rule struct {
	Match   string `yaml:"match"   json:"match"`
	Display string `yaml:"display" json:"display"`
}

// Validate checks the rule set for consistency.
func (rs *RuleSet) Validate() error {
	seen := make(map[string]struct{}, len(rs.Rules))
	for i, r := range rs.Rules {
		if r.Match == "" {
			return fmt.Errorf("rule set %q rule %d: match is required", rs.Name, i)
		}
		if r.Display == "" {
			return fmt.Errorf("rule set %q rule %d: display is required", rs.Name, i)
		}
		key := strings.ToLower(r.Match)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("rule set %q rule %d: duplicate match %q", rs.Name, i, r.Match)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Apply rewrites an engine result with display names. A rule matches when its
// match string equals a raw label in the speaker map (case-insensitive); the
// canonical name that label resolved to is then renamed in both the speaker
// map and the transcript's line prefixes.
func (rs *RuleSet) Apply(res transcript.Result) transcript.Result {
	rename := make(map[string]string)
	for _, r := range rs.Rules {
		for label, canonical := range res.Speakers {
			if strings.EqualFold(label, r.Match) {
				rename[canonical] = r.Display
			}
		}
	}
	if len(rename) == 0 {
		return res
	}

	speakers := make(map[string]string, len(res.Speakers))
	for label, canonical := range res.Speakers {
		if display, ok := rename[canonical]; ok {
			speakers[label] = display
		} else {
			speakers[label] = canonical
		}
	}

	lines := strings.Split(res.Transcript, "\n")
	for i, line := range lines {
		for canonical, display := range rename {
			if strings.HasPrefix(line, canonical+": ") {
				lines[i] = display + line[len(canonical):]
				break
			}
		}
	}

	return transcript.Result{
		Transcript: strings.Join(lines, "\n"),
		Speakers:   speakers,
	}
}
