package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
)

// Preservation skip reasons.
const (
	skipWillAutoSummarize  = "will_auto_summarize"
	skipTooFewMessages     = "too_few_messages"
	skipQualityCheckFailed = "quality_check_failed"
)

// Preserver is the deferred preservation check: before the short-term buffer
// expires, conversations worth keeping are summarized into long-term memory.
// Threads that will be auto-summarized anyway, or whose content is too thin,
// are skipped.
type Preserver struct {
	mem        *memory.Manager
	summarizer memory.Summarizer
	cfg        *config.PreservationConfig
	memCfg     *config.MemoryConfig
}

// NewPreserver creates the preservation handler.
func NewPreserver(mem *memory.Manager, summarizer memory.Summarizer,
	cfg *config.PreservationConfig, memCfg *config.MemoryConfig) *Preserver {
	return &Preserver{mem: mem, summarizer: summarizer, cfg: cfg, memCfg: memCfg}
}

// Handle runs the preservation check for one thread. Skips complete the job;
// summarizer failures are retryable.
func (p *Preserver) Handle(ctx context.Context, job *models.Job) error {
	msgs, err := p.mem.Recent(ctx, job.ThreadID, 0)
	if err != nil {
		return err
	}

	if reason := p.skipReason(msgs); reason != "" {
		slog.Info("Preservation skipped",
			"thread_id", job.ThreadID, "reason", reason, "messages", len(msgs))
		return nil
	}

	summary, err := p.summarizer.Summarize(ctx, msgs)
	if err != nil {
		return fmt.Errorf("preservation summary failed: %w", err)
	}
	if _, err := p.mem.StoreLongTerm(ctx, job.TenantID, job.ThreadID, summary,
		models.MemoryLongTerm, []string{"auto_preserved_short"},
		p.cfg.ImportanceScore, p.memCfg.LongTermTTLDays); err != nil {
		return fmt.Errorf("failed to persist preservation summary: %w", err)
	}
	if err := p.mem.ShrinkContext(ctx, job.ThreadID); err != nil {
		slog.Warn("Failed to shrink preserved thread", "thread_id", job.ThreadID, "error", err)
	}

	slog.Info("Conversation preserved", "thread_id", job.ThreadID, "messages", len(msgs))
	return nil
}

// skipReason decides whether the thread is worth preserving. An empty return
// means preserve.
func (p *Preserver) skipReason(msgs []models.Message) string {
	if len(msgs) >= p.memCfg.SummaryTrigger {
		return skipWillAutoSummarize
	}
	if len(msgs) < p.cfg.MinMessages {
		return skipTooFewMessages
	}

	userCount, userRunes := 0, 0
	for _, m := range msgs {
		if m.Role != models.RoleUser {
			continue
		}
		userCount++
		userRunes += len([]rune(m.Text()))
	}
	// A conversation with no user turns has nothing to preserve, even with
	// the configured floor at zero.
	if userCount == 0 || userCount < p.cfg.MinUserMessages {
		return skipQualityCheckFailed
	}
	if userRunes/userCount < p.cfg.MinAvgUserLength {
		return skipQualityCheckFailed
	}
	return ""
}
