package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/conversions"
	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/pkg/db"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/metrics"
	"github.com/partnerledger/backend/pkg/money"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/outbox/payloads"
)

const uxCommissionConversion = "ux_partner_commissions_conversion"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service derives commissions from confirmed conversions and runs their
// adjust/confirm/cancel/reverse lifecycle.
type Service interface {
	CreateFromConversion(ctx context.Context, conversionID uuid.UUID) (*models.PartnerCommission, error)
	Adjust(ctx context.Context, id uuid.UUID, finalAmount int64, note string) (*models.PartnerCommission, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error)
	Reverse(ctx context.Context, id uuid.UUID, reason string) (*models.PartnerCommission, error)
}

type service struct {
	repo            Repository
	conversionsRepo conversions.Repository
	partnersRepo    partners.Repository
	tx              txRunner
	outbox          outboxPublisher
	metrics         *metrics.PipelineMetrics
	now             func() time.Time
}

// NewService builds a commission service backed by the provided repositories.
func NewService(repo Repository, conversionsRepo conversions.Repository, partnersRepo partners.Repository, tx txRunner, publisher outboxPublisher, pipelineMetrics *metrics.PipelineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if conversionsRepo == nil {
		return nil, fmt.Errorf("conversions repository required")
	}
	if partnersRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:            repo,
		conversionsRepo: conversionsRepo,
		partnersRepo:    partnersRepo,
		tx:              tx,
		outbox:          publisher,
		metrics:         pipelineMetrics,
		now:             time.Now,
	}, nil
}

func (s *service) CreateFromConversion(ctx context.Context, conversionID uuid.UUID) (*models.PartnerCommission, error) {
	if conversionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion id required")
	}

	var commission *models.PartnerCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		conversion, err := s.conversionsRepo.WithTx(tx).FindByID(ctx, conversionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "conversion not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversion")
		}
		if conversion.Status != enums.ConversionStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeConversionNotComplete, "conversion is not confirmed")
		}

		partner, err := s.partnersRepo.WithTx(tx).FindByID(ctx, conversion.PartnerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
		}

		repo := s.repo.WithTx(tx)
		if _, err := repo.FindActiveByConversionID(ctx, conversionID); err == nil {
			return pkgerrors.New(pkgerrors.CodeCommissionExists, "commission already exists for conversion")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing commission")
		}

		amount := money.Commission(conversion.OrderAmount, partner.CommissionRate)
		commission = &models.PartnerCommission{
			ConversionID:     conversion.ID,
			PartnerID:        conversion.PartnerID,
			BaseAmount:       conversion.OrderAmount,
			CommissionRate:   partner.CommissionRate,
			CommissionAmount: amount,
			FinalAmount:      amount,
			Status:           enums.CommissionStatusPending,
		}
		if _, err := repo.Create(ctx, commission); err != nil {
			if db.IsUniqueViolation(err, uxCommissionConversion) {
				return pkgerrors.New(pkgerrors.CodeCommissionExists, "commission already exists for conversion")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionCreated,
			AggregateType: enums.AggregateCommission,
			AggregateID:   commission.ID,
			Version:       1,
			Data: payloads.CommissionCreatedEvent{
				CommissionID:     commission.ID,
				ConversionID:     commission.ConversionID,
				PartnerID:        commission.PartnerID,
				BaseAmount:       commission.BaseAmount,
				CommissionRate:   commission.CommissionRate,
				CommissionAmount: commission.CommissionAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommission(string(enums.CommissionStatusPending))
	return commission, nil
}

// Adjust overrides the payable amount before confirmation. The computed
// CommissionAmount stays untouched so the delta remains auditable.
func (s *service) Adjust(ctx context.Context, id uuid.UUID, finalAmount int64, note string) (*models.PartnerCommission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}
	if finalAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final amount must not be negative")
	}
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment note required")
	}

	var commission *models.PartnerCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadCommission(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.CommissionStatusPending && loaded.Status != enums.CommissionStatusAdjusted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission can no longer be adjusted")
		}

		oldStatus := loaded.Status
		oldAmount := loaded.FinalAmount
		rows, err := repo.MarkAdjusted(ctx, id, finalAmount, note)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust commission")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission already transitioned")
		}

		loaded.Status = enums.CommissionStatusAdjusted
		loaded.FinalAmount = finalAmount
		loaded.AdjustmentNote = &note
		commission = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionAdjusted,
			AggregateType: enums.AggregateCommission,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.CommissionStatusChangedEvent{
				CommissionID: loaded.ID,
				PartnerID:    loaded.PartnerID,
				OldStatus:    oldStatus,
				NewStatus:    enums.CommissionStatusAdjusted,
				OldAmount:    oldAmount,
				NewAmount:    finalAmount,
				Note:         note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommission(string(enums.CommissionStatusAdjusted))
	return commission, nil
}

// Confirm finalizes a commission and accrues its FinalAmount to the
// partner total. The conditional update guarantees the accrual happens
// at most once.
func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}

	var commission *models.PartnerCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadCommission(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.CommissionStatusPending && loaded.Status != enums.CommissionStatusAdjusted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission cannot be confirmed in current state")
		}

		oldStatus := loaded.Status
		now := s.now().UTC()
		rows, err := repo.MarkConfirmed(ctx, id, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm commission")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission already transitioned")
		}

		if err := s.partnersRepo.WithTx(tx).AddTotalCommission(ctx, loaded.PartnerID, loaded.FinalAmount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue partner total")
		}

		loaded.Status = enums.CommissionStatusConfirmed
		loaded.ConfirmedAt = &now
		commission = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionConfirmed,
			AggregateType: enums.AggregateCommission,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.CommissionStatusChangedEvent{
				CommissionID: loaded.ID,
				PartnerID:    loaded.PartnerID,
				OldStatus:    oldStatus,
				NewStatus:    enums.CommissionStatusConfirmed,
				OldAmount:    loaded.FinalAmount,
				NewAmount:    loaded.FinalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommission(string(enums.CommissionStatusConfirmed))
	return commission, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}

	var commission *models.PartnerCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadCommission(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.CommissionStatusPending && loaded.Status != enums.CommissionStatusAdjusted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending or adjusted commissions can be cancelled")
		}

		oldStatus := loaded.Status
		rows, err := repo.MarkCancelled(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel commission")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission already transitioned")
		}

		loaded.Status = enums.CommissionStatusCancelled
		commission = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionCancelled,
			AggregateType: enums.AggregateCommission,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.CommissionStatusChangedEvent{
				CommissionID: loaded.ID,
				PartnerID:    loaded.PartnerID,
				OldStatus:    oldStatus,
				NewStatus:    enums.CommissionStatusCancelled,
				OldAmount:    loaded.FinalAmount,
				NewAmount:    loaded.FinalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommission(string(enums.CommissionStatusCancelled))
	return commission, nil
}

// Reverse backs out a confirmed commission. The original row flips to
// reversed, a negative counter-entry is written for the next batch
// sweep, and the partner total is decremented by the confirmed amount.
func (s *service) Reverse(ctx context.Context, id uuid.UUID, reason string) (*models.PartnerCommission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}

	var reversal *models.PartnerCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadCommission(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.CommissionStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed commissions can be reversed")
		}

		rows, err := repo.MarkReversed(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse commission")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission already transitioned")
		}

		now := s.now().UTC()
		originalID := loaded.ID
		var note *string
		if reason != "" {
			note = &reason
		}
		reversal = &models.PartnerCommission{
			ConversionID:     loaded.ConversionID,
			PartnerID:        loaded.PartnerID,
			BaseAmount:       loaded.BaseAmount,
			CommissionRate:   loaded.CommissionRate,
			CommissionAmount: -loaded.CommissionAmount,
			FinalAmount:      -loaded.FinalAmount,
			AdjustmentNote:   note,
			Status:           enums.CommissionStatusConfirmed,
			ReversalOfID:     &originalID,
			ConfirmedAt:      &now,
		}
		if _, err := repo.Create(ctx, reversal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reversal entry")
		}

		if err := s.partnersRepo.WithTx(tx).AddTotalCommission(ctx, loaded.PartnerID, -loaded.FinalAmount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement partner total")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionReversed,
			AggregateType: enums.AggregateCommission,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.CommissionReversedEvent{
				CommissionID: loaded.ID,
				ReversalID:   reversal.ID,
				PartnerID:    loaded.PartnerID,
				Amount:       loaded.FinalAmount,
				Reason:       reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommission(string(enums.CommissionStatusReversed))
	return reversal, nil
}

func (s *service) loadCommission(ctx context.Context, repo Repository, id uuid.UUID) (*models.PartnerCommission, error) {
	loaded, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
	}
	return loaded, nil
}
