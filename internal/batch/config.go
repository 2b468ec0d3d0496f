package batch

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// Rule overrides the comparison settings for files matching a name pattern
type Rule struct {
	// Pattern matches when the file name starts with it
	Pattern       string   `json:"pattern"`
	Keys          []string `json:"keys,omitempty"`
	IgnoreColumns []string `json:"ignore_columns,omitempty"`
	Delimiter     string   `json:"delimiter,omitempty"`
	Encoding      string   `json:"encoding,omitempty"`
}

// RulesConfig is the JSON batch configuration: defaults plus an ordered rule
// list resolved per file
type RulesConfig struct {
	DefaultKeys          []string `json:"default_keys,omitempty"`
	DefaultIgnoreColumns []string `json:"default_ignore_columns,omitempty"`
	Rules                []Rule   `json:"rules,omitempty"`
}

// LoadRulesConfig reads the batch rules from a JSON file
func LoadRulesConfig(path string, logger *logrus.Logger) (*RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Errorf("Failed to load config file %s: %v", path, err)
		return nil, err
	}
	var cfg RulesConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Errorf("Failed to parse config file %s: %v", path, err)
		return nil, err
	}
	return &cfg, nil
}

// Resolve determines the comparison settings for one file. Priority order:
// first matching rule, then the config defaults, then the caller-supplied
// fallback.
func (rc *RulesConfig) Resolve(filename string, fallback models.Config) models.Config {
	resolved := fallback
	if rc == nil {
		return resolved
	}

	if rc.DefaultKeys != nil {
		resolved.KeyColumns = rc.DefaultKeys
	}
	if rc.DefaultIgnoreColumns != nil {
		resolved.IgnoreColumns = rc.DefaultIgnoreColumns
	}

	for _, rule := range rc.Rules {
		if rule.Pattern == "" || !strings.HasPrefix(filename, rule.Pattern) {
			continue
		}
		if rule.Keys != nil {
			resolved.KeyColumns = rule.Keys
		}
		if rule.IgnoreColumns != nil {
			resolved.IgnoreColumns = rule.IgnoreColumns
		}
		if rule.Delimiter != "" {
			resolved.Delimiter = []rune(rule.Delimiter)[0]
		}
		if rule.Encoding != "" {
			resolved.Encoding = rule.Encoding
		}
		break
	}
	return resolved
}
