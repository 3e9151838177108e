package settlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/orders"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/db"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/metrics"
	"github.com/partnerledger/backend/pkg/money"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/outbox/payloads"
	"github.com/partnerledger/backend/pkg/validate"
)

const uxSettlementPartyPeriod = "ux_settlements_party_period"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service computes and persists per-party settlements over delivered
// orders, and runs their processing lifecycle.
type Service interface {
	Preview(ctx context.Context, input PreviewInput) (*Preview, error)
	Create(ctx context.Context, input CreateInput) (*models.Settlement, error)
	BatchCreate(ctx context.Context, input BatchCreateInput) (*BatchCreateResult, error)
	StartProcessing(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
}

type service struct {
	repo            Repository
	ordersRepo      orders.Repository
	tx              txRunner
	outbox          outboxPublisher
	metrics         *metrics.PipelineMetrics
	platformPartyID uuid.UUID
	now             func() time.Time
}

// PreviewInput identifies the party and period to aggregate.
type PreviewInput struct {
	PartyType   enums.PartyType `json:"party_type" validate:"required,oneof=seller supplier platform"`
	PartyID     uuid.UUID       `json:"party_id" validate:"required"`
	PeriodStart time.Time       `json:"period_start" validate:"required"`
	PeriodEnd   time.Time       `json:"period_end" validate:"required"`
}

// CreateInput persists a settlement for one party and period.
type CreateInput struct {
	PartyType   enums.PartyType `json:"party_type" validate:"required,oneof=seller supplier platform"`
	PartyID     uuid.UUID       `json:"party_id" validate:"required"`
	PeriodStart time.Time       `json:"period_start" validate:"required"`
	PeriodEnd   time.Time       `json:"period_end" validate:"required"`
	Memo        string          `json:"memo" validate:"max=500"`
}

// BatchCreateInput settles every party discovered in the period.
type BatchCreateInput struct {
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

// PartyError records one party whose settlement failed during a batch
// run. The run itself keeps going.
type PartyError struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Err       error
}

// BatchCreateResult reports what a batch run produced.
type BatchCreateResult struct {
	Created []models.Settlement
	Errors  []PartyError
}

// Err folds all per-party failures into one error, or nil if every
// party settled.
func (r *BatchCreateResult) Err() error {
	var combined error
	for _, partyErr := range r.Errors {
		combined = multierr.Append(combined, fmt.Errorf("%s %s: %w", partyErr.PartyType, partyErr.PartyID, partyErr.Err))
	}
	return combined
}

// NewService builds a settlement service backed by the provided repositories.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, publisher outboxPublisher, pipelineMetrics *metrics.PipelineMetrics, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	platformPartyID, err := uuid.Parse(cfg.PlatformPartyID)
	if err != nil {
		return nil, fmt.Errorf("platform party id: %w", err)
	}
	return &service{
		repo:            repo,
		ordersRepo:      ordersRepo,
		tx:              tx,
		outbox:          publisher,
		metrics:         pipelineMetrics,
		platformPartyID: platformPartyID,
		now:             time.Now,
	}, nil
}

// Preview computes the payable without writing anything.
func (s *service) Preview(ctx context.Context, input PreviewInput) (*Preview, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, err
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	lines, err := s.ordersRepo.FindDeliveredLines(ctx, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered order lines")
	}
	return buildPreview(input.PartyType, input.PartyID, input.PeriodStart, input.PeriodEnd, lines), nil
}

// Create re-runs the preview inside a transaction and persists the
// result with line snapshots. A period with no matching lines still
// produces a settlement with a zero payable.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Settlement, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, err
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	var settlement *models.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsActive(ctx, input.PartyType, input.PartyID, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing settlement")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeDuplicateSettlement, "settlement already exists for party and period")
		}

		lines, err := s.ordersRepo.WithTx(tx).FindDeliveredLines(ctx, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered order lines")
		}
		preview := buildPreview(input.PartyType, input.PartyID, input.PeriodStart, input.PeriodEnd, lines)

		var memo *string
		if input.Memo != "" {
			memo = &input.Memo
		}
		settlement = &models.Settlement{
			PartyType:             preview.PartyType,
			PartyID:               preview.PartyID,
			PeriodStart:           preview.PeriodStart,
			PeriodEnd:             preview.PeriodEnd,
			TotalSaleAmount:       preview.TotalSaleAmount,
			TotalBaseAmount:       preview.TotalBaseAmount,
			TotalCommissionAmount: preview.TotalCommissionAmount,
			TotalMarginAmount:     preview.TotalMarginAmount,
			PayableAmount:         preview.PayableAmount,
			ItemCount:             preview.ItemCount,
			Status:                enums.SettlementStatusPending,
			Memo:                  memo,
			Items:                 snapshotItems(preview.Lines),
		}
		if _, err := repo.Create(ctx, settlement); err != nil {
			if db.IsUniqueViolation(err, uxSettlementPartyPeriod) {
				return pkgerrors.New(pkgerrors.CodeDuplicateSettlement, "settlement already exists for party and period")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementCreated,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   settlement.ID,
			Version:       1,
			Data: payloads.SettlementCreatedEvent{
				SettlementID:  settlement.ID,
				PartyType:     settlement.PartyType,
				PartyID:       settlement.PartyID,
				PeriodStart:   settlement.PeriodStart,
				PeriodEnd:     settlement.PeriodEnd,
				PayableAmount: settlement.PayableAmount,
				ItemCount:     settlement.ItemCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSettlement(string(enums.SettlementStatusPending))
	return settlement, nil
}

// BatchCreate settles every seller and supplier that delivered in the
// period, plus the platform. One party's failure never aborts the rest.
func (s *service) BatchCreate(ctx context.Context, input BatchCreateInput) (*BatchCreateResult, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, err
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	sellers, err := s.ordersRepo.DistinctSellers(ctx, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discover sellers")
	}
	suppliers, err := s.ordersRepo.DistinctSuppliers(ctx, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discover suppliers")
	}

	type party struct {
		partyType enums.PartyType
		partyID   uuid.UUID
	}
	parties := make([]party, 0, len(sellers)+len(suppliers)+1)
	for _, sellerID := range sellers {
		parties = append(parties, party{enums.PartyTypeSeller, sellerID})
	}
	for _, supplierID := range suppliers {
		parties = append(parties, party{enums.PartyTypeSupplier, supplierID})
	}
	parties = append(parties, party{enums.PartyTypePlatform, s.platformPartyID})

	result := &BatchCreateResult{}
	for _, p := range parties {
		settlement, err := s.Create(ctx, CreateInput{
			PartyType:   p.partyType,
			PartyID:     p.partyID,
			PeriodStart: input.PeriodStart,
			PeriodEnd:   input.PeriodEnd,
		})
		if err != nil {
			result.Errors = append(result.Errors, PartyError{PartyType: p.partyType, PartyID: p.partyID, Err: err})
			continue
		}
		result.Created = append(result.Created, *settlement)
	}
	return result, nil
}

func (s *service) StartProcessing(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return s.transition(ctx, id, enums.SettlementStatusProcessing, enums.EventSettlementProcessing, nil)
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return s.transition(ctx, id, enums.SettlementStatusPaid, enums.EventSettlementPaid, map[string]any{
		"paid_at": s.now().UTC(),
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return s.transition(ctx, id, enums.SettlementStatusCancelled, enums.EventSettlementCancelled, map[string]any{
		"cancelled_at": s.now().UTC(),
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, target enums.SettlementStatus, eventType enums.OutboxEventType, updates map[string]any) (*models.Settlement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id required")
	}

	var settlement *models.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement")
		}
		if !loaded.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("settlement cannot move from %s to %s", loaded.Status, target))
		}

		oldStatus := loaded.Status
		rows, err := repo.UpdateStatus(ctx, loaded.ID, []enums.SettlementStatus{oldStatus}, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settlement status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "settlement already transitioned")
		}

		loaded.Status = target
		if at, ok := updates["paid_at"].(time.Time); ok {
			loaded.PaidAt = &at
		}
		if at, ok := updates["cancelled_at"].(time.Time); ok {
			loaded.CancelledAt = &at
		}
		settlement = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   loaded.ID,
			Version:       1,
			Data: payloads.SettlementStatusChangedEvent{
				SettlementID: loaded.ID,
				PartyType:    loaded.PartyType,
				PartyID:      loaded.PartyID,
				OldStatus:    oldStatus,
				NewStatus:    target,
				PaidAt:       loaded.PaidAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSettlement(string(target))
	return settlement, nil
}

func snapshotItems(lines []models.OrderItem) []models.SettlementItem {
	items := make([]models.SettlementItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.SettlementItem{
			OrderID:                  line.OrderID,
			OrderItemID:              line.ID,
			SellerID:                 line.SellerID,
			SupplierID:               line.SupplierID,
			ProductName:              line.ProductName,
			Quantity:                 line.Quantity,
			SalePriceSnapshot:        line.SalePriceSnapshot,
			BasePriceSnapshot:        line.BasePriceSnapshot,
			CommissionAmountSnapshot: line.CommissionAmount,
			MarginAmountSnapshot:     money.Margin(line.SalePriceSnapshot*line.Quantity, line.BasePriceSnapshot*line.Quantity),
			CommissionType:           line.CommissionType,
			CommissionRate:           line.CommissionRate,
		})
	}
	return items
}
