package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets environment variables for the duration of the test.
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	t.Setenv(ConfigPathEnv, "")
	for name, value := range envVars {
		t.Setenv(name, value)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadDefaults verifies the defaults when only the required key is set.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, map[string]string{
		"NEWSLENS_LLM_GEMINI_API_KEY": "test-api-key",
	})

	cfg, err := Load()
	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout())

	assert.Equal(t, 4, cfg.Task.WorkerCount)
	assert.Equal(t, 100, cfg.Task.QueueSize)
	assert.Zero(t, cfg.Task.TaskTimeout(), "no task deadline by default")
	assert.Equal(t, 30*time.Minute, cfg.Task.StuckTaskAge())
	assert.Zero(t, cfg.Task.MaxCompletedEntries, "cache is unbounded by default")

	assert.Contains(t, cfg.News.FeedURLTemplate, "news.google.com/rss/search?q=%s")
	assert.Equal(t, 10, cfg.News.MaxItems)
	assert.Equal(t, 10*time.Second, cfg.News.RequestTimeout())
	assert.Equal(t, 4, cfg.News.AnalysisConcurrency)

	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "Hindi", cfg.LLM.SpeechLanguage)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)

	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, time.Hour, cfg.Speech.CacheTTL())
}

// TestLoadFromEnv verifies that environment variables override defaults.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"NEWSLENS_SERVER_PORT":               "9090",
		"NEWSLENS_SERVER_LOG_LEVEL":          "debug",
		"NEWSLENS_TASK_WORKER_COUNT":         "8",
		"NEWSLENS_TASK_TASK_TIMEOUT_SECONDS": "120",
		"NEWSLENS_NEWS_MAX_ITEMS":            "5",
		"NEWSLENS_LLM_GEMINI_API_KEY":        "test-api-key",
		"NEWSLENS_LLM_SPEECH_LANGUAGE":       "French",
		"NEWSLENS_SPEECH_ENABLED":            "false",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 8, cfg.Task.WorkerCount)
	assert.Equal(t, 2*time.Minute, cfg.Task.TaskTimeout())
	assert.Equal(t, 5, cfg.News.MaxItems)
	assert.Equal(t, "French", cfg.LLM.SpeechLanguage)
	assert.False(t, cfg.Speech.Enabled)
}

// TestLoadFromFile verifies file values and that the environment wins over them.
func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 7070
  log_level: warn
task:
  max_completed_entries: 500
llm:
  gemini_api_key: config-file-api-key
  voice_name: Puck
`)
	setupEnv(t, map[string]string{
		ConfigPathEnv:          path,
		"NEWSLENS_SERVER_PORT": "9090",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "environment takes precedence over the file")
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 500, cfg.Task.MaxCompletedEntries)
	assert.Equal(t, "config-file-api-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "Puck", cfg.LLM.VoiceName)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName, "unset keys keep their defaults")
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	setupEnv(t, map[string]string{"NEWSLENS_LLM_GEMINI_API_KEY": "test-api-key"})

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// TestLoadValidationErrors verifies that invalid settings are rejected.
func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "missing api key",
			envVars: map[string]string{},
		},
		{
			name: "port out of range",
			envVars: map[string]string{
				"NEWSLENS_SERVER_PORT":        "999999",
				"NEWSLENS_LLM_GEMINI_API_KEY": "test-api-key",
			},
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"NEWSLENS_SERVER_LOG_LEVEL":   "verbose",
				"NEWSLENS_LLM_GEMINI_API_KEY": "test-api-key",
			},
		},
		{
			name: "zero workers",
			envVars: map[string]string{
				"NEWSLENS_TASK_WORKER_COUNT":  "0",
				"NEWSLENS_LLM_GEMINI_API_KEY": "test-api-key",
			},
		},
		{
			name: "negative task timeout",
			envVars: map[string]string{
				"NEWSLENS_TASK_TASK_TIMEOUT_SECONDS": "-1",
				"NEWSLENS_LLM_GEMINI_API_KEY":        "test-api-key",
			},
		},
		{
			name: "feed template without placeholder",
			envVars: map[string]string{
				"NEWSLENS_NEWS_FEED_URL_TEMPLATE": "https://example.com/rss",
				"NEWSLENS_LLM_GEMINI_API_KEY":     "test-api-key",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NEWSLENS_LLM_GEMINI_API_KEY", "")
			setupEnv(t, tc.envVars)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}
