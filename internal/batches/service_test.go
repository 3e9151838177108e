package batches

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/partners"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/outbox"
)

type stubBatchesRepo struct {
	batches     map[uuid.UUID]*models.SettlementBatch
	commissions []*models.PartnerCommission
	released    bool
}

func (s *stubBatchesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubBatchesRepo) Create(ctx context.Context, batch *models.SettlementBatch) (*models.SettlementBatch, error) {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if s.batches == nil {
		s.batches = map[uuid.UUID]*models.SettlementBatch{}
	}
	s.batches[batch.ID] = batch
	return batch, nil
}

func (s *stubBatchesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *batch
	return &copied, nil
}

func (s *stubBatchesRepo) FindOpenBatches(ctx context.Context, limit int) ([]models.SettlementBatch, error) {
	var open []models.SettlementBatch
	for _, batch := range s.batches {
		if batch.Status == enums.BatchStatusOpen {
			open = append(open, *batch)
		}
	}
	return open, nil
}

func (s *stubBatchesRepo) AssignCommissions(ctx context.Context, batchID, partnerID uuid.UUID, periodStart, periodEnd time.Time) (int64, error) {
	var assigned int64
	for _, commission := range s.commissions {
		if commission.PartnerID != partnerID || commission.Status != enums.CommissionStatusConfirmed {
			continue
		}
		if commission.BatchID != nil || commission.ConfirmedAt == nil {
			continue
		}
		at := *commission.ConfirmedAt
		if at.Before(periodStart) || !at.Before(periodEnd) {
			continue
		}
		id := batchID
		commission.BatchID = &id
		assigned++
	}
	return assigned, nil
}

func (s *stubBatchesRepo) BatchTotals(ctx context.Context, batchID uuid.UUID) (int64, int64, error) {
	var count, total int64
	for _, commission := range s.commissions {
		if commission.BatchID != nil && *commission.BatchID == batchID {
			count++
			total += commission.FinalAmount
		}
	}
	return count, total, nil
}

func (s *stubBatchesRepo) UpdateTotals(ctx context.Context, batchID uuid.UUID, count, total, fee, net int64) error {
	batch := s.batches[batchID]
	batch.ConversionCount = count
	batch.TotalCommissionAmount = total
	batch.PlatformFeeAmount = fee
	batch.NetAmount = net
	return nil
}

func (s *stubBatchesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementBatchStatus, to enums.SettlementBatchStatus, updates map[string]any) (int64, error) {
	batch, ok := s.batches[id]
	if !ok {
		return 0, nil
	}
	eligible := false
	for _, status := range from {
		if batch.Status == status {
			eligible = true
		}
	}
	if !eligible {
		return 0, nil
	}
	batch.Status = to
	if at, ok := updates["paid_at"].(time.Time); ok {
		batch.PaidAt = &at
	}
	return 1, nil
}

func (s *stubBatchesRepo) ReleaseCommissions(ctx context.Context, batchID uuid.UUID) error {
	s.released = true
	for _, commission := range s.commissions {
		if commission.BatchID != nil && *commission.BatchID == batchID {
			commission.BatchID = nil
		}
	}
	return nil
}

type stubPartnersRepo struct {
	partner *models.Partner
}

func (s *stubPartnersRepo) WithTx(tx *gorm.DB) partners.Repository { return s }

func (s *stubPartnersRepo) Create(ctx context.Context, partner *models.Partner) (*models.Partner, error) {
	return partner, nil
}

func (s *stubPartnersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	if s.partner == nil || s.partner.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.partner, nil
}

func (s *stubPartnersRepo) RecordClick(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubPartnersRepo) RecordConversion(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubPartnersRepo) AddTotalCommission(ctx context.Context, id uuid.UUID, delta int64) error {
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type batchFixture struct {
	repo   *stubBatchesRepo
	outbox *stubOutboxPublisher
	svc    Service
	start  time.Time
	end    time.Time
	input  CreateInput
}

func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()

	partner := &models.Partner{ID: uuid.New(), Status: enums.PartnerStatusActive}
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	confirmedAt := start.Add(24 * time.Hour)
	lateAt := end.Add(time.Hour)
	repo := &stubBatchesRepo{
		commissions: []*models.PartnerCommission{
			{ID: uuid.New(), PartnerID: partner.ID, FinalAmount: 7500, Status: enums.CommissionStatusConfirmed, ConfirmedAt: &confirmedAt},
			{ID: uuid.New(), PartnerID: partner.ID, FinalAmount: 2500, Status: enums.CommissionStatusConfirmed, ConfirmedAt: &confirmedAt},
			{ID: uuid.New(), PartnerID: partner.ID, FinalAmount: 9999, Status: enums.CommissionStatusConfirmed, ConfirmedAt: &lateAt},
		},
	}
	publisher := &stubOutboxPublisher{}

	cfg := config.SettlementConfig{PaymentDueDays: 15, PlatformFeeBP: 200}
	svc, err := NewService(repo, &stubPartnersRepo{partner: partner}, stubTxRunner{}, publisher, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &batchFixture{
		repo:   repo,
		outbox: publisher,
		svc:    svc,
		start:  start,
		end:    end,
		input:  CreateInput{PartnerID: partner.ID, PeriodStart: start, PeriodEnd: end},
	}
}

func TestCreateBatch(t *testing.T) {
	f := newBatchFixture(t)

	batch, err := f.svc.Create(context.Background(), f.input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Status != enums.BatchStatusOpen {
		t.Fatalf("unexpected status %s", batch.Status)
	}
	if batch.BatchNumber == "" {
		t.Fatal("expected batch number")
	}
	if !batch.PaymentDueDate.Equal(f.end.AddDate(0, 0, 15)) {
		t.Fatalf("unexpected due date %s", batch.PaymentDueDate)
	}
}

func TestCreateBatchRejectsInvertedPeriod(t *testing.T) {
	f := newBatchFixture(t)
	input := f.input
	input.PeriodStart, input.PeriodEnd = input.PeriodEnd, input.PeriodStart

	_, err := f.svc.Create(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddCommissionsIdempotent(t *testing.T) {
	f := newBatchFixture(t)

	batch, err := f.svc.Create(context.Background(), f.input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := f.svc.AddCommissions(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ConversionCount != 2 || first.TotalCommissionAmount != 10000 {
		t.Fatalf("unexpected totals %+v", first)
	}
	if first.PlatformFeeAmount != 200 || first.NetAmount != 9800 {
		t.Fatalf("unexpected fee split %+v", first)
	}

	second, err := f.svc.AddCommissions(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ConversionCount != first.ConversionCount || second.TotalCommissionAmount != first.TotalCommissionAmount {
		t.Fatalf("second run changed totals: %+v vs %+v", second, first)
	}
}

func TestBatchLifecycleToPaid(t *testing.T) {
	f := newBatchFixture(t)

	batch, err := f.svc.Create(context.Background(), f.input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.AddCommissions(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Close(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.AddCommissions(context.Background(), batch.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("closed batch must not accept commissions, got %v", err)
	}

	if _, err := f.svc.StartProcessing(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paid, err := f.svc.MarkPaid(context.Background(), batch.ID, PaymentInput{Method: "bank_transfer", Reference: "TX-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != enums.BatchStatusPaid || paid.PaidAt == nil {
		t.Fatalf("unexpected batch %+v", paid)
	}

	_, err = f.svc.MarkPaid(context.Background(), batch.ID, PaymentInput{Method: "bank_transfer"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second pay must conflict, got %v", err)
	}
}

func TestCancelReleasesCommissions(t *testing.T) {
	f := newBatchFixture(t)

	batch, err := f.svc.Create(context.Background(), f.input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.AddCommissions(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != enums.BatchStatusCancelled {
		t.Fatalf("unexpected status %s", cancelled.Status)
	}
	if !f.repo.released {
		t.Fatal("cancel must release assigned commissions")
	}
	for _, commission := range f.repo.commissions {
		if commission.BatchID != nil {
			t.Fatal("no commission may stay assigned to a cancelled batch")
		}
	}
}

func TestCancelProcessingBatchRejected(t *testing.T) {
	f := newBatchFixture(t)

	batch, err := f.svc.Create(context.Background(), f.input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Close(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.StartProcessing(context.Background(), batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Cancel(context.Background(), batch.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
