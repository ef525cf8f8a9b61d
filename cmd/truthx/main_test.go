package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"truthx/internal/config"
	"truthx/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "TRUTHX_API_TOKEN", "SUPABASE_URL", "SUPABASE_KEY"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestTextCommandRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"text", "--json", "the", "moon", "landing", "was", "staged"}, env.configPath)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if rep["text_analysis"] == nil || rep["video_analysis"] != nil {
		t.Fatalf("unexpected report %v", rep)
	}
	if rep["models_used"] != "stub" {
		t.Fatalf("models_used = %v", rep["models_used"])
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0]["file_name"] != "text_query" || entries[0]["file_type"] != "text" {
		t.Fatalf("unexpected history %v", entries)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "text_query")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No analyses recorded")
}

func TestAnalyzeCommandRendersReport(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := filepath.Join(testsupport.BaseDir(env.cfg), "clip.mp4")
	testsupport.WriteFile(t, clip, 2048)

	out, _, err := runCLI(t, []string{"analyze", clip}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "== Analysis ==")
	requireContains(t, out, "Video: real (5% confidence)")
	requireContains(t, out, "clip.mp4")
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"analyze", filepath.Join(t.TempDir(), "missing.mp4")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestProbeCommandUsesStructuredProbe(t *testing.T) {
	fixture, err := filepath.Abs(filepath.Join("..", "..", "internal", "metadata", "testdata", "iphone_ffprobe.json"))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries(testsupport.FFprobeStub(fixture)))
	clip := filepath.Join(testsupport.BaseDir(env.cfg), "IMG_0001.MOV")
	testsupport.WriteFile(t, clip, 1024)

	out, _, err := runCLI(t, []string{"probe", "--json", clip}, env.configPath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	var result struct {
		Strategy string            `json:"strategy"`
		Attempts []json.RawMessage `json:"failed_attempts"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode probe %q: %v", out, err)
	}
	if result.Strategy != "structured" || result.Metadata.Source != "ffprobe" || len(result.Attempts) != 0 {
		t.Fatalf("unexpected probe result %+v", result)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "State directory")
	requireContains(t, out, "Frame classifier")
	requireContains(t, out, "0 total")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestVerboseOverridesLogLevel(t *testing.T) {
	level := ""
	verbose := true
	ctx := newCommandContext(new(string), &level, &verbose)
	if got := ctx.logLevel(); got != "debug" {
		t.Fatalf("logLevel = %q, want debug", got)
	}
}
