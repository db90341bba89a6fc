package policy

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Enabled == nil || !*cfg.Enabled {
		t.Errorf("Enabled = %v, want true", cfg.Enabled)
	}
	if cfg.TableName != DefaultTableName {
		t.Errorf("TableName = %q, want %q", cfg.TableName, DefaultTableName)
	}
}

func TestConfig_DefaultsPreserveExplicitDisabled(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantTable string
	}{
		{"with table name", "custom", "custom"},
		{"without table name", "", DefaultTableName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: boolPtr(false), TableName: tt.tableName}
			cfg.ApplyDefaults()

			if cfg.IsEnabled() {
				t.Error("IsEnabled() = true, want false when explicitly disabled")
			}
			if cfg.TableName != tt.wantTable {
				t.Errorf("TableName = %q, want %q", cfg.TableName, tt.wantTable)
			}
		})
	}
}

func TestConfig_YAMLEnabledFalseAlone(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("enabled: false\n"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.IsEnabled() {
		t.Error("IsEnabled() = true after enabled: false, want false")
	}
}

func TestConfig_YAMLEnabledAbsent(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("table_name: edge\n"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	cfg.ApplyDefaults()

	if !cfg.IsEnabled() {
		t.Error("IsEnabled() = false with enabled unset, want true")
	}
}

func TestConfig_IsEnabledNil(t *testing.T) {
	var cfg Config
	if !cfg.IsEnabled() {
		t.Error("IsEnabled() = false for nil Enabled, want true")
	}
}

func TestConfig_ValidateRejectsEmptyTableName(t *testing.T) {
	cfg := Config{
		Enabled:   boolPtr(true),
		TableName: "",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for empty TableName")
	}
	want := "policy: config: TableName must not be empty when enabled"
	if err.Error() != want {
		t.Errorf("Validate() error = %q, want %q", err.Error(), want)
	}
}

func TestConfig_ValidateRejectsLongTableName(t *testing.T) {
	cfg := Config{Enabled: boolPtr(true), TableName: strings.Repeat("t", 256)}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for overlong TableName")
	}
}

func TestConfig_ValidateDisabledSkipsValidation(t *testing.T) {
	cfg := Config{
		Enabled:   boolPtr(false),
		TableName: "",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for disabled config", err)
	}
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
