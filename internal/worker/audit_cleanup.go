package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/access-policy/internal/repository"
	"github.com/jwalitptl/access-policy/pkg/logger"
)

// AuditCleanupWorker deletes audit entries older than the retention window.
type AuditCleanupWorker struct {
	repo            repository.AuditRepository
	logger          *logger.Logger
	retentionDays   int
	cleanupInterval time.Duration
	now             func() time.Time
}

func NewAuditCleanupWorker(repo repository.AuditRepository, log *logger.Logger, retentionDays int, cleanupInterval time.Duration) *AuditCleanupWorker {
	if log == nil {
		log = logger.NewNop()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 24 * time.Hour
	}
	return &AuditCleanupWorker{
		repo:            repo,
		logger:          log.WithFields(map[string]interface{}{"worker": "audit_cleanup"}),
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
}

// Start blocks until ctx is done. Zero retention keeps entries forever.
func (w *AuditCleanupWorker) Start(ctx context.Context) {
	if w.retentionDays <= 0 {
		w.logger.Info("Audit retention disabled")
		return
	}

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up audit logs")
			}
		}
	}
}

// Cleanup runs one retention pass and returns the number of deleted entries.
func (w *AuditCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	w.logger.ZL.Info().
		Int64("rows", rows).
		Time("cutoff", cutoff).
		Msg("Cleaned up audit logs")
	return rows, nil
}
