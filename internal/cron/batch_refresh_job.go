package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/logger"
)

const defaultOpenBatchLimit = 100

type openBatchFinder interface {
	FindOpenBatches(ctx context.Context, limit int) ([]models.SettlementBatch, error)
}

type batchRefresher interface {
	AddCommissions(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
}

type BatchRefreshJobParams struct {
	Logger     *logger.Logger
	Repository openBatchFinder
	Batches    batchRefresher
	Limit      int
}

// NewBatchRefreshJob builds the sweep that pulls newly confirmed
// commissions into every open settlement batch. Assignment is
// idempotent, so re-running over the same batch is safe.
func NewBatchRefreshJob(params BatchRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if params.Batches == nil {
		return nil, fmt.Errorf("batches service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultOpenBatchLimit
	}
	return &batchRefreshJob{
		logg:    params.Logger,
		repo:    params.Repository,
		batches: params.Batches,
		limit:   limit,
	}, nil
}

type batchRefreshJob struct {
	logg    *logger.Logger
	repo    openBatchFinder
	batches batchRefresher
	limit   int
}

func (j *batchRefreshJob) Name() string { return "batch-refresh" }

func (j *batchRefreshJob) Run(ctx context.Context) error {
	open, err := j.repo.FindOpenBatches(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("batch refresh: list open batches: %w", err)
	}

	failed := 0
	for _, batch := range open {
		refreshed, err := j.batches.AddCommissions(ctx, batch.ID)
		if err != nil {
			failed++
			errCtx := j.logg.WithField(ctx, "batch_id", batch.ID)
			j.logg.Error(errCtx, "batch refresh failed", err)
			continue
		}
		batchCtx := j.logg.WithFields(ctx, map[string]any{
			"batch_id":     refreshed.ID,
			"batch_number": refreshed.BatchNumber,
			"conversions":  refreshed.ConversionCount,
			"total":        refreshed.TotalCommissionAmount,
		})
		j.logg.Info(batchCtx, "batch totals refreshed")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"open_batches": len(open),
		"failed":       failed,
	})
	j.logg.Info(logCtx, "batch refresh complete")

	if failed > 0 {
		return fmt.Errorf("batch refresh: %d batches failed", failed)
	}
	return nil
}
