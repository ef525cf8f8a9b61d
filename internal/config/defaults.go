package config

const (
	defaultConfigPath           = "~/.config/truthx/config.toml"
	defaultStateDir             = "~/.local/share/truthx"
	defaultTempDir              = "~/.local/share/truthx/tmp"
	defaultLogDir               = "~/.local/share/truthx/logs"
	defaultArticlesPath         = "~/.local/share/truthx/articles.json"
	defaultServerBind           = "127.0.0.1:8000"
	defaultMaxUploadMB          = 512
	defaultFFprobeBinary        = "ffprobe"
	defaultFFmpegBinary         = "ffmpeg"
	defaultProbeTimeoutSeconds  = 30
	defaultFrameSampleRate      = 1.0
	defaultFrameSize            = 224
	defaultMaxFrames            = 120
	defaultBatchSize            = 8
	defaultVideoTimeoutSeconds  = 60
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMTitle             = "truthx text classifier"
	defaultLLMTimeoutSeconds    = 60
	defaultSearchTopK           = 3
	defaultAuditRestTable       = "analysis_logs"
	defaultAuditTimeoutSeconds  = 10
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:     defaultStateDir,
			TempDir:      defaultTempDir,
			LogDir:       defaultLogDir,
			ArticlesPath: defaultArticlesPath,
		},
		Server: Server{
			Bind:           defaultServerBind,
			AllowedOrigins: append([]string(nil), defaultAllowedOrigins...),
			MaxUploadMB:    defaultMaxUploadMB,
		},
		Probe: Probe{
			FFprobeBinary:  defaultFFprobeBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Video: Video{
			FrameSampleRate: defaultFrameSampleRate,
			FrameSize:       defaultFrameSize,
			MaxFrames:       defaultMaxFrames,
			BatchSize:       defaultBatchSize,
			TimeoutSeconds:  defaultVideoTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Search: Search{
			Enabled: true,
			TopK:    defaultSearchTopK,
			Watch:   true,
		},
		Audit: Audit{
			Enabled:        true,
			RestTable:      defaultAuditRestTable,
			TimeoutSeconds: defaultAuditTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			HighRisk:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
