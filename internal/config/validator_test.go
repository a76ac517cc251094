package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func hasField(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate_Logging(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"trace", "debug", "info", "warn", "error", "assert", "none", "INFO", ""} {
			cfg := Default()
			cfg.Logging.Level = level
			if hasField(cfg.Validate(), "logging.level") {
				t.Errorf("level %q should be valid", level)
			}
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"invalid level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"negative max size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"huge max size", func(c *Config) { c.Logging.MaxSizeMB = maxLogSizeMB + 1 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"too many backups", func(c *Config) { c.Logging.MaxBackups = maxLogBackups + 1 }, "logging.max_backups"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if !hasField(cfg.Validate(), tt.field) {
				t.Errorf("expected error for %s", tt.field)
			}
		})
	}

	t.Run("zero max size disables rotation", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 0
		if hasField(cfg.Validate(), "logging.max_size_mb") {
			t.Error("0 should be accepted")
		}
	})
}

func TestConfig_Validate_Capture(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		field   string
		wantErr bool
	}{
		{"empty tool", func(c *Config) { c.Capture.Tool = "" }, "capture.tool", true},
		{"blank list command", func(c *Config) { c.Capture.ListCommand = "  " }, "capture.list_command", true},
		{"empty kill command", func(c *Config) { c.Capture.KillCommand = "" }, "capture.kill_command", true},
		{"empty namespace", func(c *Config) { c.Capture.Namespace = "" }, "capture.namespace", true},
		{"namespace with separator", func(c *Config) { c.Capture.Namespace = "a/b" }, "capture.namespace", true},
		{"dotted namespace", func(c *Config) { c.Capture.Namespace = "com.example.prefs" }, "capture.namespace", false},
		{"watch interval too short", func(c *Config) { c.Capture.WatchInterval = 10 * time.Millisecond }, "capture.watch_interval", true},
		{"watch interval minimum", func(c *Config) { c.Capture.WatchInterval = minWatchInterval }, "capture.watch_interval", false},
		{"zero command timeout", func(c *Config) { c.Capture.CommandTimeout = 0 }, "capture.command_timeout", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if got := hasField(cfg.Validate(), tt.field); got != tt.wantErr {
				t.Errorf("error for %s = %v, want %v", tt.field, got, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Capture.Tool = ""
	cfg.Capture.CommandTimeout = -time.Second

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}
