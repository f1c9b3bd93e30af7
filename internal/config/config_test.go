package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// point LoadConfig at an isolated config file so a developer's local
// config.yaml never leaks into tests.
func isolate(t *testing.T, yaml string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if yaml != "" {
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("API_KEYS", "")
	t.Setenv("PROVIDER", "")
	t.Setenv("AUDIT_RATE", "")
	t.Setenv("PARTITION_COUNT", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t, "")

	cfg := LoadConfig()
	if cfg.Provider != "gemini" {
		t.Fatalf("expected gemini default, got %s", cfg.Provider)
	}
	if cfg.ModelFast != "gemini-2.5-flash" || cfg.ModelExpert != "gemini-2.5-pro" {
		t.Fatalf("unexpected default models: %s / %s", cfg.ModelFast, cfg.ModelExpert)
	}
	if cfg.ConfFastAccept != 0.985 || cfg.AuditRate != 0.12 || cfg.MarginThreshold != 0.2 {
		t.Fatalf("unexpected cascade defaults: %+v", cfg)
	}
	if cfg.WeightFast != 1.0 || cfg.WeightExpert != 2.0 {
		t.Fatalf("unexpected weight defaults: %f / %f", cfg.WeightFast, cfg.WeightExpert)
	}
	if cfg.BatchSize != 5 || cfg.CheckpointInterval != 50 || cfg.PartitionCount != 5 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.RequestDelay() != time.Second || cfg.RetryDelay() != 2*time.Second {
		t.Fatalf("unexpected delay defaults: %v / %v", cfg.RequestDelay(), cfg.RetryDelay())
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	isolate(t, `
provider: anthropic
audit_rate: 0.25
partition_count: 2
api_keys:
  - key-a
  - key-b
schedule: "0 3 * * *"
`)

	cfg := LoadConfig()
	if cfg.Provider != "anthropic" {
		t.Fatalf("expected anthropic, got %s", cfg.Provider)
	}
	if cfg.ModelFast != "claude-3-5-haiku-latest" {
		t.Fatalf("default fast model must follow the provider, got %s", cfg.ModelFast)
	}
	if cfg.AuditRate != 0.25 || cfg.PartitionCount != 2 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[0] != "key-a" {
		t.Fatalf("unexpected api keys: %v", cfg.APIKeys)
	}
	if cfg.Schedule != "0 3 * * *" {
		t.Fatalf("unexpected schedule: %q", cfg.Schedule)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	isolate(t, "provider: gemini\naudit_rate: 0.12\n")
	t.Setenv("PROVIDER", "anthropic")
	t.Setenv("AUDIT_RATE", "0.5")
	t.Setenv("API_KEYS", "k1, k2 ,k3,")

	cfg := LoadConfig()
	if cfg.Provider != "anthropic" {
		t.Fatalf("env must override yaml, got %s", cfg.Provider)
	}
	if cfg.AuditRate != 0.5 {
		t.Fatalf("env must override yaml, got %f", cfg.AuditRate)
	}
	if len(cfg.APIKeys) != 3 || cfg.APIKeys[1] != "k2" {
		t.Fatalf("API_KEYS must split on commas and trim, got %v", cfg.APIKeys)
	}
}

func TestValidateRun(t *testing.T) {
	cfg := Config{Provider: "gemini", PartitionCount: 3, APIKeys: []string{"a", "b", "c"}}
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("expected valid run config, got %v", err)
	}

	cfg.APIKeys = []string{"a"}
	if err := cfg.ValidateRun(); err == nil {
		t.Fatal("expected error for fewer keys than partitions")
	}

	cfg.APIKeys = nil
	if err := cfg.ValidateRun(); err == nil {
		t.Fatal("expected error for missing keys")
	}

	cfg = Config{Provider: "openai", PartitionCount: 1, APIKeys: []string{"a"}}
	if err := cfg.ValidateRun(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
