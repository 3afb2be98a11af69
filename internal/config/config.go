package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Task   TaskConfig   `mapstructure:"task" validate:"required"`
	News   NewsConfig   `mapstructure:"news" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
	Speech SpeechConfig `mapstructure:"speech"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TaskConfig controls background execution of analysis tasks.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`

	// TaskTimeoutSeconds bounds one task's pipeline run. 0 disables the deadline.
	TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds" validate:"gte=0"`

	// StuckTaskAgeMinutes is how long a task may run before it is reported.
	// 0 disables the report.
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=0"`

	// MaxCompletedEntries bounds the result cache. 0 means unbounded.
	MaxCompletedEntries int `mapstructure:"max_completed_entries" validate:"gte=0"`
}

// TaskTimeout returns the per-task deadline, or zero for none.
func (c TaskConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

// StuckTaskAge returns the age at which running tasks are reported.
func (c TaskConfig) StuckTaskAge() time.Duration {
	return time.Duration(c.StuckTaskAgeMinutes) * time.Minute
}

// NewsConfig contains settings for the news feed and article extraction.
type NewsConfig struct {
	// FeedURLTemplate is a search feed URL with one %s for the escaped query.
	FeedURLTemplate       string `mapstructure:"feed_url_template" validate:"required,contains=%s"`
	MaxItems              int    `mapstructure:"max_items" validate:"gt=0,lte=50"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	UserAgent             string `mapstructure:"user_agent" validate:"required"`
	AnalysisConcurrency   int    `mapstructure:"analysis_concurrency" validate:"gt=0"`
}

// RequestTimeout returns the timeout of a single HTTP request.
func (c NewsConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey    string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName       string `mapstructure:"model_name" validate:"required"`
	SpeechModelName string `mapstructure:"speech_model_name" validate:"required"`
	VoiceName       string `mapstructure:"voice_name" validate:"required"`

	// SpeechLanguage is the language the spoken summary is translated into.
	// Empty speaks the English summary.
	SpeechLanguage    string `mapstructure:"speech_language"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// SpeechConfig controls speech synthesis and its cache.
type SpeechConfig struct {
	Enabled         bool  `mapstructure:"enabled"`
	CacheMaxBytes   int64 `mapstructure:"cache_max_bytes" validate:"gte=0"`
	CacheTTLMinutes int   `mapstructure:"cache_ttl_minutes" validate:"gte=0"`
}

// CacheTTL returns how long synthesized audio is kept. Zero means no expiry.
func (c SpeechConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
