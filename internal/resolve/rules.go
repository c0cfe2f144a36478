package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/docmerge/internal/types"
)

// Rule prefers one side for conflicts in a section, optionally only when a
// conflicting line matches Pattern. An empty Section matches every section.
type Rule struct {
	Section types.Section
	Pattern *regexp.Regexp
	Prefer  types.Side
}

// Matches reports whether the rule applies to c.
func (r Rule) Matches(c types.Conflict) bool {
	if r.Section != "" && r.Section != c.Section {
		return false
	}
	if r.Pattern == nil {
		return true
	}
	for _, group := range [][]string{c.Base, c.Local, c.Remote} {
		for _, l := range group {
			if r.Pattern.MatchString(l) {
				return true
			}
		}
	}
	return false
}

// RuleSet is an ordered list of rules; the first match wins.
type RuleSet struct {
	Rules []Rule
	// Default is used when no rule matches. Empty means no default.
	Default types.Side
}

// Match returns the preferred side for c.
// A nil RuleSet matches nothing.
func (rs *RuleSet) Match(c types.Conflict) (types.Side, error) {
	if rs != nil {
		for _, r := range rs.Rules {
			if r.Matches(c) {
				return r.Prefer, nil
			}
		}
		if rs.Default != "" {
			return rs.Default, nil
		}
	}
	return "", &types.NoMatchingRuleError{ConflictID: c.ID, Section: c.Section}
}

// ruleFile is the on-disk shape shared by the YAML and TOML formats.
type ruleFile struct {
	Default string         `yaml:"default" toml:"default"`
	Rules   []ruleFileItem `yaml:"rules" toml:"rules"`
}

type ruleFileItem struct {
	Section string `yaml:"section" toml:"section"`
	Pattern string `yaml:"pattern" toml:"pattern"`
	Prefer  string `yaml:"prefer" toml:"prefer"`
}

// LoadRules reads a rule set from a .yaml/.yml or .toml file.
//
// YAML:
//
//	default: remote
//	rules:
//	  - section: frontmatter
//	    pattern: "^updated:"
//	    prefer: remote
//
// TOML uses the same keys with [[rules]] tables.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- rules path comes from config or flag
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var raw ruleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}

	return compileRules(raw)
}

// ParseRulesYAML parses rules from YAML content.
func ParseRulesYAML(data []byte) (*RuleSet, error) {
	var raw ruleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return compileRules(raw)
}

func compileRules(raw ruleFile) (*RuleSet, error) {
	rs := &RuleSet{}

	if raw.Default != "" {
		side := types.Side(strings.ToLower(strings.TrimSpace(raw.Default)))
		if !side.IsValid() {
			return nil, fmt.Errorf("rules: invalid default side %q (valid: local, remote)", raw.Default)
		}
		rs.Default = side
	}

	for i, item := range raw.Rules {
		var r Rule

		section := types.Section(strings.ToLower(strings.TrimSpace(item.Section)))
		if section != "" && section != "any" {
			if !section.IsValid() {
				return nil, fmt.Errorf("rules[%d]: invalid section %q (valid: frontmatter, code, body, any)", i, item.Section)
			}
			r.Section = section
		}

		if item.Pattern != "" {
			re, err := regexp.Compile(item.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: invalid pattern %q: %w", i, item.Pattern, err)
			}
			r.Pattern = re
		}

		r.Prefer = types.Side(strings.ToLower(strings.TrimSpace(item.Prefer)))
		if !r.Prefer.IsValid() {
			return nil, fmt.Errorf("rules[%d]: invalid prefer %q (valid: local, remote)", i, item.Prefer)
		}

		rs.Rules = append(rs.Rules, r)
	}

	return rs, nil
}
