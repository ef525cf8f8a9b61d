package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"truthx/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "truthx")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.AuditDBPath() != filepath.Join(wantState, "analyses.db") {
		t.Fatalf("unexpected audit db path %q", cfg.AuditDBPath())
	}
	if cfg.Server.Bind != "127.0.0.1:8000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Probe.TimeoutSeconds != 30 {
		t.Fatalf("expected 30s probe timeout, got %d", cfg.Probe.TimeoutSeconds)
	}
	if cfg.Search.TopK != 3 {
		t.Fatalf("expected top_k 3, got %d", cfg.Search.TopK)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_KEY", "sb-key")
	t.Setenv("TRUTHX_API_TOKEN", "secret")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "or-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Audit.RestURL != "https://example.supabase.co" {
		t.Fatalf("expected trimmed rest url, got %q", cfg.Audit.RestURL)
	}
	if cfg.Audit.RestKey != "sb-key" {
		t.Fatalf("expected rest key from env, got %q", cfg.Audit.RestKey)
	}
	if cfg.Server.APIToken != "secret" {
		t.Fatalf("expected api token from env, got %q", cfg.Server.APIToken)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"

[probe]
timeout_seconds = 5

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q (%v)", path, resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(dir, "state") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.ProbeTimeout().Seconds() != 5 {
		t.Fatalf("unexpected probe timeout %s", cfg.ProbeTimeout())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  bind: 0.0.0.0:9000\nsearch:\n  enabled: false\n  top_k: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
	if cfg.Search.Enabled || cfg.Search.TopK != 5 {
		t.Fatalf("unexpected search settings %+v", cfg.Search)
	}
	if cfg.Probe.FFprobeBinary != "ffprobe" {
		t.Fatalf("expected defaults to survive yaml decode, got %q", cfg.Probe.FFprobeBinary)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[probe]\nffprobe_bin = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bind", func(c *config.Config) { c.Server.Bind = "nonsense" }, "server.bind"},
		{"inference", func(c *config.Config) { c.Video.InferenceURL = "ftp://models" }, "video.inference_url"},
		{"rest key", func(c *config.Config) { c.Audit.RestURL = "https://db.example" }, "audit.rest_key"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if cfg.Probe.TimeoutSeconds != 30 {
		t.Fatalf("unexpected sample probe timeout %d", cfg.Probe.TimeoutSeconds)
	}
}
