package batches

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/db"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/metrics"
	"github.com/partnerledger/backend/pkg/money"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/outbox/payloads"
)

const uxBatchNumber = "ux_settlement_batches_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs the affiliate batch lifecycle: open a batch, sweep
// confirmed commissions into it, then close, process, and pay it.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.SettlementBatch, error)
	AddCommissions(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	Close(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	StartProcessing(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	MarkPaid(ctx context.Context, batchID uuid.UUID, payment PaymentInput) (*models.SettlementBatch, error)
	Cancel(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
}

type service struct {
	repo         Repository
	partnersRepo partners.Repository
	tx           txRunner
	outbox       outboxPublisher
	metrics      *metrics.PipelineMetrics
	cfg          config.SettlementConfig
	now          func() time.Time
}

// CreateInput opens a batch for one partner and period.
type CreateInput struct {
	PartnerID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// PaymentInput records how a batch was paid out.
type PaymentInput struct {
	Method    string
	Reference string
}

// NewService builds a batch service backed by the provided repositories.
func NewService(repo Repository, partnersRepo partners.Repository, tx txRunner, publisher outboxPublisher, pipelineMetrics *metrics.PipelineMetrics, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batches repository required")
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
		repo:         repo,
		partnersRepo: partnersRepo,
		tx:           tx,
		outbox:       publisher,
		metrics:      pipelineMetrics,
		cfg:          cfg,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.SettlementBatch, error) {
	if input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	if _, err := s.partnersRepo.FindByID(ctx, input.PartnerID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}

	batch := &models.SettlementBatch{
		PartnerID:      input.PartnerID,
		BatchNumber:    newBatchNumber(input.PeriodStart),
		PeriodStart:    input.PeriodStart,
		PeriodEnd:      input.PeriodEnd,
		PaymentDueDate: input.PeriodEnd.AddDate(0, 0, s.cfg.PaymentDueDays),
		Status:         enums.BatchStatusOpen,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, batch); err != nil {
			if db.IsUniqueViolation(err, uxBatchNumber) {
				return pkgerrors.New(pkgerrors.CodeConflict, "batch number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCreated,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Data: payloads.BatchCreatedEvent{
				BatchID:     batch.ID,
				PartnerID:   batch.PartnerID,
				BatchNumber: batch.BatchNumber,
				PeriodStart: batch.PeriodStart,
				PeriodEnd:   batch.PeriodEnd,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBatch(string(enums.BatchStatusOpen))
	return batch, nil
}

// AddCommissions sweeps eligible commissions into an open batch and
// recomputes its totals from what is actually assigned. Calling it again
// assigns nothing new and leaves the totals unchanged.
func (s *service) AddCommissions(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	var batch *models.SettlementBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadBatch(ctx, repo, batchID)
		if err != nil {
			return err
		}
		if loaded.Status != enums.BatchStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commissions can only be added to an open batch")
		}

		if _, err := repo.AssignCommissions(ctx, loaded.ID, loaded.PartnerID, loaded.PeriodStart, loaded.PeriodEnd); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign commissions")
		}

		count, total, err := repo.BatchTotals(ctx, loaded.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute batch totals")
		}
		fee := money.FeeBasisPoints(total, s.cfg.PlatformFeeBP)
		net := total - fee
		if err := repo.UpdateTotals(ctx, loaded.ID, count, total, fee, net); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch totals")
		}

		loaded.ConversionCount = count
		loaded.TotalCommissionAmount = total
		loaded.PlatformFeeAmount = fee
		loaded.NetAmount = net
		batch = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCommissionsAssigned,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.BatchCommissionsAssignedEvent{
				BatchID:               loaded.ID,
				PartnerID:             loaded.PartnerID,
				ConversionCount:       count,
				TotalCommissionAmount: total,
				NetAmount:             net,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *service) Close(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	return s.transition(ctx, batchID, enums.BatchStatusClosed, enums.EventBatchClosed, nil)
}

func (s *service) StartProcessing(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	return s.transition(ctx, batchID, enums.BatchStatusProcessing, enums.EventBatchProcessing, nil)
}

// MarkPaid finishes a processing batch. Invoking it on an already paid
// batch is an explicit state conflict, not a silent no-op, so payment
// runs that double-fire are surfaced.
func (s *service) MarkPaid(ctx context.Context, batchID uuid.UUID, payment PaymentInput) (*models.SettlementBatch, error) {
	if payment.Method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	updates := map[string]any{
		"paid_at":           s.now().UTC(),
		"payment_method":    payment.Method,
		"payment_reference": payment.Reference,
	}
	return s.transition(ctx, batchID, enums.BatchStatusPaid, enums.EventBatchPaid, updates)
}

// Cancel voids an open or closed batch and releases its commissions so
// a later batch can pick them up.
func (s *service) Cancel(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	var batch *models.SettlementBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadBatch(ctx, repo, batchID)
		if err != nil {
			return err
		}
		if !loaded.CanTransitionTo(enums.BatchStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("batch cannot move from %s to %s", loaded.Status, enums.BatchStatusCancelled))
		}

		oldStatus := loaded.Status
		rows, err := repo.UpdateStatus(ctx, loaded.ID, batchCancellableStatuses(), enums.BatchStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel batch")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch already transitioned")
		}
		if err := repo.ReleaseCommissions(ctx, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release batch commissions")
		}

		loaded.Status = enums.BatchStatusCancelled
		batch = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCancelled,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.BatchStatusChangedEvent{
				BatchID:   loaded.ID,
				PartnerID: loaded.PartnerID,
				OldStatus: oldStatus,
				NewStatus: enums.BatchStatusCancelled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBatch(string(enums.BatchStatusCancelled))
	return batch, nil
}

func (s *service) transition(ctx context.Context, batchID uuid.UUID, target enums.SettlementBatchStatus, eventType enums.OutboxEventType, updates map[string]any) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	var batch *models.SettlementBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadBatch(ctx, repo, batchID)
		if err != nil {
			return err
		}
		if !loaded.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("batch cannot move from %s to %s", loaded.Status, target))
		}

		oldStatus := loaded.Status
		rows, err := repo.UpdateStatus(ctx, loaded.ID, []enums.SettlementBatchStatus{oldStatus}, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch already transitioned")
		}

		loaded.Status = target
		if at, ok := updates["paid_at"].(time.Time); ok {
			loaded.PaidAt = &at
		}
		batch = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.BatchStatusChangedEvent{
				BatchID:   loaded.ID,
				PartnerID: loaded.PartnerID,
				OldStatus: oldStatus,
				NewStatus: target,
				PaidAt:    loaded.PaidAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBatch(string(target))
	return batch, nil
}

func (s *service) loadBatch(ctx context.Context, repo Repository, id uuid.UUID) (*models.SettlementBatch, error) {
	loaded, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	return loaded, nil
}

func batchCancellableStatuses() []enums.SettlementBatchStatus {
	return []enums.SettlementBatchStatus{
		enums.BatchStatusOpen,
		enums.BatchStatusClosed,
	}
}

func newBatchNumber(periodStart time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("PSB-%s-%s", periodStart.Format("200601"), strings.ToUpper(suffix))
}
