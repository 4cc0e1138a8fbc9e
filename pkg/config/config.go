// Package config provides typed, env-driven configuration for all Solyn
// components. Each concern has its own struct with built-in defaults; Load
// reads the environment once at process start and returns an immutable
// Config value.
package config

// Config is the umbrella configuration object returned by Load and used
// throughout the application.
type Config struct {
	HTTP         *HTTPConfig
	Database     *DatabaseConfig
	Redis        *RedisConfig
	LLM          *LLMConfig
	Memory       *MemoryConfig
	Workflow     *WorkflowConfig
	Intent       *IntentConfig
	Tasks        *TasksConfig
	Awakening    *AwakeningConfig
	Preservation *PreservationConfig
	Callback     *CallbackConfig
	Assets       *AssetsConfig
	Cleanup      *CleanupConfig
}

// Validate checks all sub-configurations and returns the first error found.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.HTTP, c.Database, c.LLM, c.Memory, c.Workflow,
		c.Intent, c.Tasks, c.Awakening, c.Preservation, c.Callback,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
