package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeProbe()
	c.normalizeVideo()
	c.normalizeLLM()
	c.normalizeSearch()
	c.normalizeAudit()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.temp_dir", &c.Paths.TempDir, defaultTempDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.articles_path", &c.Paths.ArticlesPath, defaultArticlesPath},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("TRUTHX_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.AllowedOrigins = origins
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeProbe() {
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if c.Probe.FFprobeBinary == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
	c.Probe.FFmpegBinary = strings.TrimSpace(c.Probe.FFmpegBinary)
	if c.Probe.FFmpegBinary == "" {
		c.Probe.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeVideo() {
	c.Video.InferenceURL = strings.TrimSpace(c.Video.InferenceURL)
	if c.Video.FrameSampleRate <= 0 {
		c.Video.FrameSampleRate = defaultFrameSampleRate
	}
	if c.Video.FrameSize <= 0 {
		c.Video.FrameSize = defaultFrameSize
	}
	if c.Video.MaxFrames <= 0 {
		c.Video.MaxFrames = defaultMaxFrames
	}
	if c.Video.BatchSize <= 0 {
		c.Video.BatchSize = defaultBatchSize
	}
	if c.Video.TimeoutSeconds <= 0 {
		c.Video.TimeoutSeconds = defaultVideoTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeSearch() {
	if c.Search.TopK <= 0 {
		c.Search.TopK = defaultSearchTopK
	}
}

func (c *Config) normalizeAudit() {
	if c.Audit.RestURL == "" {
		if value, ok := os.LookupEnv("SUPABASE_URL"); ok {
			c.Audit.RestURL = value
		}
	}
	if c.Audit.RestKey == "" {
		if value, ok := os.LookupEnv("SUPABASE_KEY"); ok {
			c.Audit.RestKey = value
		}
	}
	c.Audit.RestURL = strings.TrimRight(strings.TrimSpace(c.Audit.RestURL), "/")
	c.Audit.RestKey = strings.TrimSpace(c.Audit.RestKey)
	c.Audit.RestTable = strings.TrimSpace(c.Audit.RestTable)
	if c.Audit.RestTable == "" {
		c.Audit.RestTable = defaultAuditRestTable
	}
	if c.Audit.TimeoutSeconds <= 0 {
		c.Audit.TimeoutSeconds = defaultAuditTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
