package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load builds the full configuration from environment variables layered over
// the built-in defaults, then validates it.
func Load() (*Config, error) {
	memory := DefaultMemoryConfig()
	memory.ShortTermCapacity = envInt("N_SHORT", memory.ShortTermCapacity)
	memory.SummaryTrigger = envInt("N_SUMMARY", memory.SummaryTrigger)
	memory.KeepAfterSummary = envInt("KEEP_AFTER_SUMMARY", memory.KeepAfterSummary)
	memory.ConversationTTL = envDuration("CONVERSATION_TTL", memory.ConversationTTL)
	memory.LongTermTTLDays = envInt("ES_MEMORY_TTL_DAYS", memory.LongTermTTLDays)

	preservation := DefaultPreservationConfig(memory.ConversationTTL)
	preservation.Wait = envDuration("PRESERVATION_WAIT", preservation.Wait)
	preservation.MinMessages = envInt("MIN_MESSAGES_TO_PRESERVE", preservation.MinMessages)

	cfg := &Config{
		HTTP:         loadHTTP(),
		Database:     loadDatabase(),
		Redis:        loadRedis(),
		LLM:          loadLLM(),
		Memory:       memory,
		Workflow:     loadWorkflow(),
		Intent:       loadIntent(),
		Tasks:        loadTasks(),
		Awakening:    loadAwakening(),
		Preservation: preservation,
		Callback:     loadCallback(),
		Assets:       loadAssets(),
		Cleanup:      DefaultCleanupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadHTTP() *HTTPConfig {
	c := DefaultHTTPConfig()
	c.Port = envString("HTTP_PORT", c.Port)
	c.JWTSecret = os.Getenv("JWT_SECRET")
	return c
}

func loadDatabase() *DatabaseConfig {
	c := DefaultDatabaseConfig()
	c.Host = envString("DB_HOST", c.Host)
	c.Port = envInt("DB_PORT", c.Port)
	c.User = envString("DB_USER", c.User)
	c.Password = os.Getenv("DB_PASSWORD")
	c.Database = envString("DB_NAME", c.Database)
	c.SSLMode = envString("DB_SSLMODE", c.SSLMode)
	c.MaxConns = envInt("DB_MAX_CONNS", c.MaxConns)
	return c
}

func loadRedis() *RedisConfig {
	c := DefaultRedisConfig()
	c.Addr = envString("REDIS_ADDR", c.Addr)
	c.Password = os.Getenv("REDIS_PASSWORD")
	c.DB = envInt("REDIS_DB", c.DB)
	return c
}

func loadLLM() *LLMConfig {
	c := DefaultLLMConfig()
	c.APIKey = os.Getenv("LLM_API_KEY")
	c.BaseURL = envString("LLM_BASE_URL", c.BaseURL)
	c.Model = envString("LLM_MODEL", c.Model)
	c.SummaryModel = envString("LLM_SUMMARY_MODEL", c.SummaryModel)
	c.TTSModel = envString("LLM_TTS_MODEL", c.TTSModel)
	c.RequestTimeout = envDuration("LLM_REQUEST_TIMEOUT", c.RequestTimeout)
	c.MaxToolIterations = envInt("LLM_MAX_TOOL_ITERATIONS", c.MaxToolIterations)
	return c
}

func loadWorkflow() *WorkflowConfig {
	c := DefaultWorkflowConfig()
	c.ParallelExecution = envBool("ENABLE_PARALLEL_EXECUTION", c.ParallelExecution)
	c.BusyWait = envDuration("THREAD_BUSY_WAIT", c.BusyWait)
	return c
}

func loadIntent() *IntentConfig {
	c := DefaultIntentConfig()
	c.ThresholdOverride = envBool("ENABLE_INTENT_THRESHOLD_OVERRIDE", c.ThresholdOverride)
	c.AssetsThreshold = envFloat("ASSETS_INTENT_THRESHOLD", c.AssetsThreshold)
	c.AppointmentThreshold = envFloat("APPOINTMENT_INTENT_THRESHOLD", c.AppointmentThreshold)
	c.AudioOutputThreshold = envFloat("AUDIO_OUTPUT_INTENT_THRESHOLD", c.AudioOutputThreshold)
	return c
}

func loadTasks() *TasksConfig {
	c := DefaultTasksConfig()
	c.TaskQueue = envString("TASK_QUEUE", c.TaskQueue)
	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxConcurrentActivities = envInt("MAX_CONCURRENT_ACTIVITIES", c.MaxConcurrentActivities)
	return c
}

func loadAwakening() *AwakeningConfig {
	c := DefaultAwakeningConfig()
	c.Enabled = envBool("AWAKENING_ENABLED", c.Enabled)
	c.ScanInterval = envDuration("AWAKENING_SCAN_INTERVAL", c.ScanInterval)
	c.BatchSize = envInt("AWAKENING_BATCH_SIZE", c.BatchSize)
	c.RetryInterval = envDuration("AWAKENING_RETRY_INTERVAL", c.RetryInterval)
	c.MaxAttempts = envInt("MAX_AWAKENING_ATTEMPTS", c.MaxAttempts)
	return c
}

func loadCallback() *CallbackConfig {
	c := DefaultCallbackConfig()
	c.BaseURL = envString("CALLBACK_URL", c.BaseURL)
	c.Timeout = envDuration("CALLBACK_TIMEOUT", c.Timeout)
	c.MaxRetries = envInt("CALLBACK_MAX_RETRIES", c.MaxRetries)
	return c
}

func loadAssets() *AssetsConfig {
	c := DefaultAssetsConfig()
	c.BaseURL = envString("ASSETS_SERVICE_URL", c.BaseURL)
	c.CacheTTL = envDuration("ASSETS_CACHE_TTL", c.CacheTTL)
	return c
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
