package config

import (
	"fmt"
	"time"
)

// HTTPConfig controls the inbound API server.
type HTTPConfig struct {
	Port      string
	JWTSecret string
	// JWTExempt lists route prefixes that skip bearer authentication.
	JWTExempt []string
}

// DefaultHTTPConfig returns the built-in HTTP defaults.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:      "8080",
		JWTExempt: []string{"/healthz", "/api/v1/auth/token"},
	}
}

// Validate checks the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("http: JWT_SECRET is required")
	}
	return nil
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDatabaseConfig returns the built-in database defaults.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "solyn",
		Database:        "solyn",
		SSLMode:         "disable",
		MaxConns:        20,
		MinConns:        2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// DSN returns the pgx-compatible connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" || c.Database == "" {
		return fmt.Errorf("database: host and database are required")
	}
	return nil
}

// RedisConfig holds cache and short-term buffer connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultRedisConfig returns the built-in Redis defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{Addr: "localhost:6379"}
}

// LLMConfig holds provider settings for the LLM gateway.
type LLMConfig struct {
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string
	// Model is the default chat model.
	Model string
	// SummaryModel is the cheaper model used for summarization and awakening.
	SummaryModel string
	// TTSModel is the text-to-speech model voicing assistant replies.
	// Empty disables speech synthesis.
	TTSModel string
	// RequestTimeout bounds every non-video provider call.
	RequestTimeout time.Duration
	// MaxToolIterations bounds the tool-call loop per logical turn.
	MaxToolIterations int
}

// DefaultLLMConfig returns the built-in LLM defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Model:             "gpt-4o",
		SummaryModel:      "gpt-4o-mini",
		RequestTimeout:    30 * time.Second,
		MaxToolIterations: 3,
	}
}

// Validate checks the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("llm: LLM_API_KEY is required")
	}
	if c.MaxToolIterations < 1 {
		return fmt.Errorf("llm: max tool iterations must be >= 1")
	}
	return nil
}

// MemoryConfig drives the short-term buffer and summarization retention.
type MemoryConfig struct {
	// ShortTermCapacity is the ring capacity per thread (N_SHORT).
	ShortTermCapacity int
	// SummaryTrigger is the buffer length that schedules summarization (N_SUMMARY).
	SummaryTrigger int
	// KeepAfterSummary is how many newest messages survive shrink_context.
	KeepAfterSummary int
	// ConversationTTL is the buffer idle TTL, refreshed on append.
	ConversationTTL time.Duration
	// LongTermTTLDays is the expiry horizon for summarized entries (ES_MEMORY_TTL_DAYS).
	LongTermTTLDays int
}

// DefaultMemoryConfig returns the built-in memory defaults.
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		ShortTermCapacity: 20,
		SummaryTrigger:    15,
		KeepAfterSummary:  5,
		ConversationTTL:   time.Hour,
		LongTermTTLDays:   30,
	}
}

// Validate checks the memory configuration.
func (c *MemoryConfig) Validate() error {
	if c.SummaryTrigger > c.ShortTermCapacity {
		return fmt.Errorf("memory: summary trigger (%d) must not exceed capacity (%d)",
			c.SummaryTrigger, c.ShortTermCapacity)
	}
	if c.KeepAfterSummary >= c.SummaryTrigger {
		return fmt.Errorf("memory: keep-after-summary (%d) must be below the trigger (%d)",
			c.KeepAfterSummary, c.SummaryTrigger)
	}
	return nil
}

// WorkflowConfig selects the graph topology and run-path behaviour.
type WorkflowConfig struct {
	// ParallelExecution enables the fan-out topology (ENABLE_PARALLEL_EXECUTION).
	ParallelExecution bool
	// BusyWait is the bounded wait before failing with ThreadBusy.
	BusyWait time.Duration
	// BusyPollInterval is the poll cadence during the busy wait.
	BusyPollInterval time.Duration
}

// DefaultWorkflowConfig returns the built-in workflow defaults.
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		ParallelExecution: true,
		BusyWait:          5 * time.Second,
		BusyPollInterval:  250 * time.Millisecond,
	}
}

// Validate checks the workflow configuration.
func (c *WorkflowConfig) Validate() error {
	if c.BusyPollInterval <= 0 || c.BusyWait < c.BusyPollInterval {
		return fmt.Errorf("workflow: busy wait must be at least one poll interval")
	}
	return nil
}

// IntentConfig tunes the intent agent's post-processing.
type IntentConfig struct {
	// ThresholdOverride enables per-intent score thresholds
	// (ENABLE_INTENT_THRESHOLD_OVERRIDE).
	ThresholdOverride bool
	// Scores below the threshold clear the corresponding detected flag.
	// A score exactly equal to the threshold counts as detected.
	AssetsThreshold      float64
	AppointmentThreshold float64
	AudioOutputThreshold float64
	// AppointmentStrength is the minimum strength for business status=1.
	AppointmentStrength float64
	// AssetsTopK bounds the ranked assets kept on the state.
	AssetsTopK int
}

// DefaultIntentConfig returns the built-in intent defaults.
func DefaultIntentConfig() *IntentConfig {
	return &IntentConfig{
		ThresholdOverride:    true,
		AssetsThreshold:      0.5,
		AppointmentThreshold: 0.5,
		AudioOutputThreshold: 0.5,
		AppointmentStrength:  0.6,
		AssetsTopK:           3,
	}
}

// Validate checks the intent configuration.
func (c *IntentConfig) Validate() error {
	for _, t := range []float64{c.AssetsThreshold, c.AppointmentThreshold, c.AudioOutputThreshold} {
		if t < 0 || t > 1 {
			return fmt.Errorf("intent: thresholds must be within [0,1]")
		}
	}
	if c.AssetsTopK < 1 {
		return fmt.Errorf("intent: assets top-k must be >= 1")
	}
	return nil
}

// TasksConfig controls the durable job runner.
type TasksConfig struct {
	// TaskQueue names the logical queue claimed by this replica (TASK_QUEUE).
	TaskQueue string
	// WorkerCount is the number of job worker goroutines (WORKER_COUNT).
	WorkerCount int
	// MaxConcurrentActivities caps in-flight jobs across workers
	// (MAX_CONCURRENT_ACTIVITIES).
	MaxConcurrentActivities int
	// PollInterval is the base cadence for claiming due jobs.
	PollInterval time.Duration
	// PollIntervalJitter randomizes the poll cadence to avoid thundering herds.
	PollIntervalJitter time.Duration
	// RetryInitial, RetryMax and MaxAttempts define the bounded retry policy.
	RetryInitial time.Duration
	RetryMax     time.Duration
	MaxAttempts  int
	// ActivityTimeout bounds a single job execution.
	ActivityTimeout time.Duration
	// GracefulShutdownTimeout bounds worker drain during shutdown.
	GracefulShutdownTimeout time.Duration
}

// DefaultTasksConfig returns the built-in task runner defaults.
func DefaultTasksConfig() *TasksConfig {
	return &TasksConfig{
		TaskQueue:               "default",
		WorkerCount:             4,
		MaxConcurrentActivities: 8,
		PollInterval:            time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		RetryInitial:            time.Second,
		RetryMax:                30 * time.Second,
		MaxAttempts:             3,
		ActivityTimeout:         60 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the task runner configuration.
func (c *TasksConfig) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("tasks: worker count must be >= 1")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("tasks: max attempts must be >= 1")
	}
	return nil
}

// AwakeningConfig drives the periodic inactive-thread awakening scan.
type AwakeningConfig struct {
	// Enabled turns the scheduled scan on.
	Enabled bool
	// ScanInterval is the fixed cadence of the scan (AWAKENING_SCAN_INTERVAL).
	ScanInterval time.Duration
	// BatchSize caps threads processed per run (AWAKENING_BATCH_SIZE).
	BatchSize int
	// RetryInterval is the minimum quiet period before re-awakening a thread
	// (AWAKENING_RETRY_INTERVAL).
	RetryInterval time.Duration
	// MaxAttempts excludes threads awakened too many times (MAX_AWAKENING_ATTEMPTS).
	MaxAttempts int
}

// DefaultAwakeningConfig returns the built-in awakening defaults.
func DefaultAwakeningConfig() *AwakeningConfig {
	return &AwakeningConfig{
		Enabled:       true,
		ScanInterval:  15 * time.Minute,
		BatchSize:     20,
		RetryInterval: 24 * time.Hour,
		MaxAttempts:   3,
	}
}

// Validate checks the awakening configuration.
func (c *AwakeningConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("awakening: batch size must be >= 1")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("awakening: max attempts must be >= 0")
	}
	return nil
}

// PreservationConfig drives per-thread deferred conversation preservation.
type PreservationConfig struct {
	// Wait is the deferral before the preservation check runs
	// (PRESERVATION_WAIT; defaults to the conversation TTL minus 45 minutes,
	// measured from scheduling).
	Wait time.Duration
	// MinMessages skips threads with too little to preserve
	// (MIN_MESSAGES_TO_PRESERVE).
	MinMessages int
	// MinUserMessages and MinAvgUserLength gate conversation quality.
	MinUserMessages  int
	MinAvgUserLength int
	// ImportanceScore is recorded on auto-preserved summaries.
	ImportanceScore float64
}

// DefaultPreservationConfig returns the built-in preservation defaults,
// derived from the given conversation TTL.
func DefaultPreservationConfig(conversationTTL time.Duration) *PreservationConfig {
	wait := conversationTTL - 45*time.Minute
	if wait <= 0 {
		wait = conversationTTL / 2
	}
	return &PreservationConfig{
		Wait:             wait,
		MinMessages:      3,
		MinUserMessages:  2,
		MinAvgUserLength: 5,
		ImportanceScore:  0.6,
	}
}

// Validate checks the preservation configuration.
func (c *PreservationConfig) Validate() error {
	if c.Wait <= 0 {
		return fmt.Errorf("preservation: wait must be positive")
	}
	return nil
}

// CallbackConfig controls outbound callback delivery.
type CallbackConfig struct {
	// BaseURL is the upstream callback base (CALLBACK_URL). Endpoints are
	// joined onto it per delivery.
	BaseURL string
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	// MaxRetries bounds redelivery with exponential backoff.
	MaxRetries int
}

// DefaultCallbackConfig returns the built-in callback defaults.
func DefaultCallbackConfig() *CallbackConfig {
	return &CallbackConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Validate checks the callback configuration.
func (c *CallbackConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("callback: max retries must be >= 0")
	}
	return nil
}

// AssetsConfig points at the external tenant assets service.
type AssetsConfig struct {
	// BaseURL of the assets service; empty disables the assets flow.
	BaseURL string
	// CacheTTL bounds the per-tenant catalog cache.
	CacheTTL time.Duration
	// RequestTimeout bounds a catalog fetch.
	RequestTimeout time.Duration
}

// DefaultAssetsConfig returns the built-in assets defaults.
func DefaultAssetsConfig() *AssetsConfig {
	return &AssetsConfig{
		CacheTTL:       24 * time.Hour,
		RequestTimeout: 10 * time.Second,
	}
}

// CleanupConfig drives the retention loop.
type CleanupConfig struct {
	// Interval is the cadence of retention passes.
	Interval time.Duration
	// StaleJobAge is how long a claimed job may go unfinished before it is
	// released back to pending.
	StaleJobAge time.Duration
}

// DefaultCleanupConfig returns the built-in cleanup defaults.
func DefaultCleanupConfig() *CleanupConfig {
	return &CleanupConfig{
		Interval:    time.Hour,
		StaleJobAge: 10 * time.Minute,
	}
}
