package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir     string `toml:"state_dir" yaml:"state_dir"`
	TempDir      string `toml:"temp_dir" yaml:"temp_dir"`
	LogDir       string `toml:"log_dir" yaml:"log_dir"`
	ArticlesPath string `toml:"articles_path" yaml:"articles_path"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind           string   `toml:"bind" yaml:"bind"`
	APIToken       string   `toml:"api_token" yaml:"api_token"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	MaxUploadMB    int      `toml:"max_upload_mb" yaml:"max_upload_mb"`
}

// Probe contains settings for the metadata probing tools.
type Probe struct {
	FFprobeBinary  string `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Video contains frame sampling and frame classifier settings. An empty
// InferenceURL selects the stub classifier.
type Video struct {
	InferenceURL    string  `toml:"inference_url" yaml:"inference_url"`
	FrameSampleRate float64 `toml:"frame_sample_rate" yaml:"frame_sample_rate"`
	FrameSize       int     `toml:"frame_size" yaml:"frame_size"`
	MaxFrames       int     `toml:"max_frames" yaml:"max_frames"`
	BatchSize       int     `toml:"batch_size" yaml:"batch_size"`
	TimeoutSeconds  int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// LLM contains connection settings for the text classifier. An empty APIKey
// selects the stub classifier.
type LLM struct {
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	Model          string `toml:"model" yaml:"model"`
	Referer        string `toml:"referer" yaml:"referer"`
	Title          string `toml:"title" yaml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Search contains related-article search settings.
type Search struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	TopK    int  `toml:"top_k" yaml:"top_k"`
	Watch   bool `toml:"watch" yaml:"watch"`
}

// Audit contains analysis-log persistence settings. The SQLite store lives in
// the state directory; the REST sink is enabled when RestURL is set.
type Audit struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	RestURL        string `toml:"rest_url" yaml:"rest_url"`
	RestKey        string `toml:"rest_key" yaml:"rest_key"`
	RestTable      string `toml:"rest_table" yaml:"rest_table"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"`
	HighRisk       bool   `toml:"high_risk" yaml:"high_risk"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Config encapsulates all configuration values for truthx.
//
// Configuration sections by subsystem:
//   - Paths: state, temp, and log directories plus the article corpus
//   - Server: HTTP bind address, auth token, CORS, and upload limits
//   - Probe: ffprobe/ffmpeg binaries and the probe timeout
//   - Video: frame sampling and frame classifier endpoint
//   - LLM: text classifier connection settings
//   - Search: related-article search
//   - Audit: analysis-log persistence
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Server        Server        `toml:"server" yaml:"server"`
	Probe         Probe         `toml:"probe" yaml:"probe"`
	Video         Video         `toml:"video" yaml:"video"`
	LLM           LLM           `toml:"llm" yaml:"llm"`
	Search        Search        `toml:"search" yaml:"search"`
	Audit         Audit         `toml:"audit" yaml:"audit"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := decode(resolvedPath, file, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decode(path string, r io.Reader, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("truthx.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, temp, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AuditDBPath returns the SQLite audit database location.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.Paths.StateDir, "analyses.db")
}

// LockPath returns the single-instance lock file used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "truthx.lock")
}

// ProbeTimeout returns the bound applied to each probing tool invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit for media uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
