package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestResolveNilConfigUsesFallback(t *testing.T) {
	var rc *RulesConfig
	fallback := models.Config{KeyColumns: []string{"id"}}

	cfg := rc.Resolve("any.csv", fallback)
	if len(cfg.KeyColumns) != 1 || cfg.KeyColumns[0] != "id" {
		t.Errorf("Expected fallback keys, got %v", cfg.KeyColumns)
	}
}

func TestResolveDefaultsOverrideFallback(t *testing.T) {
	rc := &RulesConfig{DefaultKeys: []string{"code"}}
	fallback := models.Config{KeyColumns: []string{"id"}, IgnoreColumns: []string{"noise"}}

	cfg := rc.Resolve("any.csv", fallback)
	if cfg.KeyColumns[0] != "code" {
		t.Errorf("Expected config defaults to win, got %v", cfg.KeyColumns)
	}
	// untouched settings keep the fallback
	if len(cfg.IgnoreColumns) != 1 || cfg.IgnoreColumns[0] != "noise" {
		t.Errorf("Expected fallback ignore columns, got %v", cfg.IgnoreColumns)
	}
}

func TestResolveRuleOverridesDefaults(t *testing.T) {
	rc := &RulesConfig{
		DefaultKeys: []string{"id"},
		Rules: []Rule{
			{Pattern: "sales_", Keys: []string{"order_id"}, Delimiter: "|", Encoding: "windows-1252"},
			{Pattern: "sales_2024", Keys: []string{"never_reached"}},
		},
	}

	cfg := rc.Resolve("sales_2024.csv", models.Config{})
	if len(cfg.KeyColumns) != 1 || cfg.KeyColumns[0] != "order_id" {
		t.Errorf("Expected the first matching rule to win, got %v", cfg.KeyColumns)
	}
	if cfg.Delimiter != '|' {
		t.Errorf("Expected rule delimiter '|', got %q", cfg.Delimiter)
	}
	if cfg.Encoding != "windows-1252" {
		t.Errorf("Expected rule encoding, got %q", cfg.Encoding)
	}

	cfg = rc.Resolve("inventory.csv", models.Config{})
	if len(cfg.KeyColumns) != 1 || cfg.KeyColumns[0] != "id" {
		t.Errorf("Expected the defaults for a non-matching file, got %v", cfg.KeyColumns)
	}
}

func TestResolveEmptyRuleKeysDisableMatching(t *testing.T) {
	rc := &RulesConfig{
		DefaultKeys: []string{"id"},
		Rules:       []Rule{{Pattern: "nokeys", Keys: []string{}}},
	}

	cfg := rc.Resolve("nokeys_file.csv", models.Config{})
	if len(cfg.KeyColumns) != 0 {
		t.Errorf("Expected an explicit empty key list to clear the defaults, got %v", cfg.KeyColumns)
	}
}

func TestLoadRulesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	content := `{
    "default_keys": ["id"],
    "default_ignore_columns": ["updated_at"],
    "rules": [
        {"pattern": "orders_", "keys": ["order_id", "line"], "delimiter": ";"}
    ]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	rc, err := LoadRulesConfig(path, testLogger())
	if err != nil {
		t.Fatalf("LoadRulesConfig failed: %v", err)
	}
	if len(rc.DefaultKeys) != 1 || rc.DefaultKeys[0] != "id" {
		t.Errorf("Unexpected default keys: %v", rc.DefaultKeys)
	}
	if len(rc.Rules) != 1 || rc.Rules[0].Pattern != "orders_" {
		t.Errorf("Unexpected rules: %v", rc.Rules)
	}

	cfg := rc.Resolve("orders_march.csv", models.Config{})
	if len(cfg.KeyColumns) != 2 || cfg.KeyColumns[1] != "line" {
		t.Errorf("Unexpected resolved keys: %v", cfg.KeyColumns)
	}
	if cfg.Delimiter != ';' {
		t.Errorf("Unexpected resolved delimiter: %q", cfg.Delimiter)
	}
}

func TestLoadRulesConfigErrors(t *testing.T) {
	if _, err := LoadRulesConfig("/nonexistent/rules.json", testLogger()); err == nil {
		t.Error("Expected an error for a missing config file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadRulesConfig(path, testLogger()); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}
