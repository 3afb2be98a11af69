package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NEWSLENS"

// ConfigPathEnv names the variable holding an explicit config file path.
const ConfigPathEnv = EnvPrefix + "_CONFIG_PATH"

var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.shutdown_timeout_seconds": 15,

	"task.worker_count":           4,
	"task.queue_size":             100,
	"task.task_timeout_seconds":   0,
	"task.stuck_task_age_minutes": 30,
	"task.max_completed_entries":  0,

	"news.feed_url_template":       "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
	"news.max_items":               10,
	"news.request_timeout_seconds": 10,
	"news.user_agent":              "Mozilla/5.0 (compatible; newslens/1.0)",
	"news.analysis_concurrency":    4,

	"llm.model_name":          "gemini-2.0-flash",
	"llm.speech_model_name":   "gemini-2.5-flash-preview-tts",
	"llm.voice_name":          "Kore",
	"llm.speech_language":     "Hindi",
	"llm.max_retries":         3,
	"llm.retry_delay_seconds": 2,

	"speech.enabled":           true,
	"speech.cache_max_bytes":   64 << 20,
	"speech.cache_ttl_minutes": 60,
}

// Load configuration from environment variables and optionally a config file.
// The file is taken from NEWSLENS_CONFIG_PATH, or config.yaml in the working
// directory when that is unset. Environment variables take precedence over
// values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigPathEnv))
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the working directory for config.yaml; a missing file there is not an error.
func LoadFile(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	if err := v.BindEnv("llm.gemini_api_key"); err != nil {
		return nil, fmt.Errorf("error binding environment variable: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
