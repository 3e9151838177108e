package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/partnerledger/backend/internal/settlements"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/logger"
)

type settlementRunner interface {
	BatchCreate(ctx context.Context, input settlements.BatchCreateInput) (*settlements.BatchCreateResult, error)
}

type SettlementRunJobParams struct {
	Logger      *logger.Logger
	Settlements settlementRunner
}

// NewSettlementRunJob builds the monthly settlement sweep. Each run
// settles the previous calendar month for every party with delivered
// orders in that window.
func NewSettlementRunJob(params SettlementRunJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlements service required")
	}
	return &settlementRunJob{
		logg:        params.Logger,
		settlements: params.Settlements,
		now:         time.Now,
	}, nil
}

type settlementRunJob struct {
	logg        *logger.Logger
	settlements settlementRunner
	now         func() time.Time
}

func (j *settlementRunJob) Name() string { return "settlement-run" }

func (j *settlementRunJob) Run(ctx context.Context) error {
	periodStart, periodEnd := previousMonth(j.now().UTC())

	result, err := j.settlements.BatchCreate(ctx, settlements.BatchCreateInput{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		return fmt.Errorf("settlement run: %w", err)
	}

	duplicates := 0
	failed := 0
	for _, partyErr := range result.Errors {
		if pkgerrors.HasCode(partyErr.Err, pkgerrors.CodeDuplicateSettlement) {
			duplicates++
			continue
		}
		failed++
		errCtx := j.logg.WithFields(ctx, map[string]any{
			"party_type": string(partyErr.PartyType),
			"party_id":   partyErr.PartyID,
		})
		j.logg.Error(errCtx, "party settlement failed", partyErr.Err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_start": periodStart,
		"period_end":   periodEnd,
		"created":      len(result.Created),
		"duplicates":   duplicates,
		"failed":       failed,
	})
	j.logg.Info(logCtx, "settlement run complete")

	if failed > 0 {
		return fmt.Errorf("settlement run: %d parties failed", failed)
	}
	return nil
}

// previousMonth returns the closed interval covering the calendar month
// before the reference time, in UTC.
func previousMonth(ref time.Time) (time.Time, time.Time) {
	firstOfThisMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.Add(-time.Second)
	return start, end
}
