package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAppConfigFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	saved := DefaultAppConfig()
	saved.LogLevel = "debug"
	saved.MaxSteps = 25
	saved.MetricsFile = "/var/lib/node_exporter/gridcut.prom"
	savedPath := filepath.Join(dir, "nested", "config.json")
	if err := SaveAppConfig(savedPath, saved); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	partial := DefaultAppConfig()
	partial.LogLevel = "warn"

	tests := []struct {
		name    string
		path    string
		want    AppConfig
		wantErr bool
	}{
		{"round trip", savedPath, saved, false},
		{"missing file", filepath.Join(dir, "absent", "config.json"), DefaultAppConfig(), false},
		{"partial file keeps defaults", write("partial.json", `{"log_level": "warn"}`), partial, false},
		{"malformed", write("bad.json", "{nope"), AppConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadAppConfig(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults", func(*AppConfig) {}, false},
		{"unknown policy", func(c *AppConfig) { c.PolicyID = 2 }, true},
		{"unknown log level", func(c *AppConfig) { c.LogLevel = "trace" }, true},
		{"negative max steps", func(c *AppConfig) { c.MaxSteps = -1 }, true},
		{"negative offcut area", func(c *AppConfig) { c.OffcutMinArea = -4 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAppConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestAppConfigApplyEnv(t *testing.T) {
	t.Setenv("GRIDCUT_LOG_LEVEL", "error")
	t.Setenv("GRIDCUT_MAX_STEPS", "12")
	t.Setenv("GRIDCUT_LOG_PRETTY", "true")
	t.Setenv("GRIDCUT_LISTEN_ADDR", "")
	t.Setenv("GRIDCUT_METRICS_FILE", "")

	cfg := DefaultAppConfig()
	cfg.ApplyEnv()

	if cfg.LogLevel != "error" || cfg.MaxSteps != 12 || !cfg.LogPretty {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("empty env should keep default, got %q", cfg.ListenAddr)
	}
}

func TestAppConfigApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("GRIDCUT_MAX_STEPS", "many")
	cfg := DefaultAppConfig()
	cfg.ApplyEnv()
	if cfg.MaxSteps != 0 {
		t.Errorf("expected fallback 0, got %d", cfg.MaxSteps)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if filepath.Base(path) != "config.json" || filepath.Base(filepath.Dir(path)) != ".gridcut" {
		t.Errorf("unexpected config path %s", path)
	}
}
