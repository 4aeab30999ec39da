package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/pkg/jobs"
)

// MediaSweepJobType identifies sweep jobs on the queue.
const MediaSweepJobType = "media_sweep"

type orphanStore interface {
	ListUnresolved(ctx context.Context, limit int) ([]models.MediaOrphan, error)
	MarkResolved(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id, message string) error
}

type objectRemover interface {
	Remove(ctx context.Context, bucket string, paths []string) error
}

// SweepResult summarises one sweep pass.
type SweepResult struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// MediaSweepService retries deletes of orphaned media objects.
type MediaSweepService struct {
	orphans   orphanStore
	remover   objectRemover
	metrics   *MetricsService
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewMediaSweepService constructs the sweeper.
func NewMediaSweepService(orphans orphanStore, remover objectRemover, metrics *MetricsService, batchSize int, logger *zap.Logger) *MediaSweepService {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaSweepService{orphans: orphans, remover: remover, metrics: metrics, batchSize: batchSize, logger: logger, now: time.Now}
}

// Sweep retries up to one batch of unresolved orphans.
func (s *MediaSweepService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	orphans, err := s.orphans.ListUnresolved(ctx, s.batchSize)
	if err != nil {
		return result, err
	}
	for _, orphan := range orphans {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.remover.Remove(ctx, orphan.Bucket, []string{orphan.Path}); err != nil {
			result.Failed++
			s.logger.Warn("orphan sweep delete failed", zap.String("path", orphan.Path), zap.Int("attempts", orphan.Attempts+1), zap.Error(err))
			if recErr := s.orphans.RecordFailure(ctx, orphan.ID, err.Error()); recErr != nil {
				s.logger.Error("failed to record sweep failure", zap.String("orphan_id", orphan.ID), zap.Error(recErr))
			}
			continue
		}
		if err := s.orphans.MarkResolved(ctx, orphan.ID, s.now().UTC()); err != nil {
			s.logger.Error("failed to resolve orphan", zap.String("orphan_id", orphan.ID), zap.Error(err))
			continue
		}
		result.Resolved++
	}
	s.metrics.RecordSweep(result.Resolved, result.Failed)
	if len(orphans) > 0 {
		s.logger.Info("orphan sweep finished", zap.Int("resolved", result.Resolved), zap.Int("failed", result.Failed))
	}
	return result, nil
}

// Handle adapts Sweep to a queue handler.
func (s *MediaSweepService) Handle(ctx context.Context, _ jobs.Job) error {
	_, err := s.Sweep(ctx)
	return err
}
