// Solyn conversation orchestrator: serves the tenant HTTP API, runs the
// workflow graph engine, and drives the durable background jobs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/solyn-ai/solyn/pkg/agent"
	"github.com/solyn-ai/solyn/pkg/api"
	"github.com/solyn-ai/solyn/pkg/assets"
	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/cleanup"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/database"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/store"
	"github.com/solyn-ai/solyn/pkg/tasks"
	"github.com/solyn-ai/solyn/pkg/version"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	slog.Info("Starting Solyn", "version", version.Full())

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. PostgreSQL (runs embedded migrations)
	db, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to PostgreSQL database")

	// 3. Redis (entity caches and short-term conversation buffers)
	cacheClient, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			slog.Error("Error closing Redis client", "error", err)
		}
	}()
	slog.Info("Connected to Redis")

	// 4. Stores and entity services
	st := store.New(db.Pool())
	tenantService := services.NewTenantService(st.Tenants, cacheClient)
	assistantService := services.NewAssistantService(st.Assistants, cacheClient)
	threadService := services.NewThreadService(st.Threads, tenantService, assistantService, st.Jobs, cacheClient)

	// 5. Memory: Redis-backed short-term ring plus Postgres long-term store
	llmClient := llm.NewOpenAIClient(cfg.LLM)
	summarizer := llm.NewConversationSummarizer(llmClient, cfg.LLM)
	buffer := memory.NewRedisBuffer(cacheClient, cfg.Memory.ShortTermCapacity, cfg.Memory.ConversationTTL)
	mem := memory.NewManager(buffer, st.Memories, summarizer, cfg.Memory)

	// 6. LLM gateway with memory tools
	registry := llm.NewRegistry()
	llm.RegisterMemoryTools(registry, mem)
	gateway := llm.NewGateway(llmClient, registry, cfg.LLM)

	// 7. Agents and the workflow graph
	assetsService := assets.NewService(cfg.Assets, cacheClient)
	sentimentAgent := agent.NewSentimentAgent(gateway, mem, agent.DefaultPromptMatrix())
	intentAgent := agent.NewIntentAgent(gateway, assetsService, cfg.Intent)
	salesAgent := agent.NewSalesAgent(gateway, mem, assistantService)

	graph := workflow.NewChatGraph(sentimentAgent, intentAgent, salesAgent, cfg.Workflow.ParallelExecution)
	engine, err := workflow.NewEngine(graph)
	if err != nil {
		slog.Error("Failed to build workflow engine", "error", err)
		os.Exit(1)
	}
	slog.Info("Workflow engine ready", "parallel", cfg.Workflow.ParallelExecution)

	// 8. Run orchestration, with speech synthesis when a TTS model is set
	var speech services.SpeechSynthesizer
	if cfg.LLM.TTSModel != "" {
		speech = llm.NewSpeechSynthesizer(llmClient, cacheClient, cfg.LLM)
		slog.Info("Speech synthesis enabled", "model", cfg.LLM.TTSModel)
	}
	guard := services.NewRunGuard(st.Threads, threadService, tenantService, assistantService, cacheClient, cfg.Workflow)
	runService := services.NewRunService(guard, engine, mem, st.Runs, st.Jobs, speech, cfg.Preservation, cfg.Tasks)
	memoryService := services.NewMemoryService(mem, tenantService, guard)

	// 9. Background job runner
	sender := tasks.NewCallbackSender(cfg.Callback)
	if !sender.Enabled() {
		slog.Warn("CALLBACK_URL not set, outbound callbacks are disabled")
	}
	runner := tasks.NewRunner(st.Jobs, cfg.Tasks)
	scanner := tasks.NewAwakeningScanner(st.Threads, st.Jobs, assistantService, mem, gateway, sender, cfg.Awakening, cfg.LLM)
	runner.Register(models.JobAwakeningScan, scanner.Handle)
	runner.Register(models.JobPreservation, tasks.NewPreserver(mem, summarizer, cfg.Preservation, cfg.Memory).Handle)
	runner.Register(models.JobRunAsync, tasks.NewAsyncRunner(runService, sender).Handle)
	runner.Register(models.JobGreeting, tasks.NewGreeter(assistantService, mem, gateway, sender, cfg.LLM).Handle)
	runner.Register(models.JobCallback, sender.HandleJob)
	runner.Start()

	if err := scanner.EnsureSchedule(ctx); err != nil {
		slog.Error("Failed to schedule awakening scan", "error", err)
	}

	// 10. Retention loop
	cleaner := cleanup.New(st.Memories, st.Jobs, cfg.Cleanup)
	cleaner.Start()

	// 11. HTTP server
	server := api.NewServer(cfg.HTTP, db, cacheClient, tenantService, threadService, memoryService, runService, st.Jobs)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()
	slog.Info("Solyn started", "port", cfg.HTTP.Port, "workers", cfg.Tasks.WorkerCount)

	// 12. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 13. Graceful shutdown: stop intake first, then drain the workers
	httpCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	runner.Stop()
	cleaner.Stop()
	slog.Info("Shutdown complete")
}
