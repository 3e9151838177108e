package settlements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/internal/orders"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	pkgerrors "github.com/partnerledger/backend/pkg/errors"
	"github.com/partnerledger/backend/pkg/outbox"
)

type stubSettlementsRepo struct {
	rows map[uuid.UUID]*models.Settlement
}

func (s *stubSettlementsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSettlementsRepo) Create(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error) {
	if settlement.ID == uuid.Nil {
		settlement.ID = uuid.New()
	}
	if s.rows == nil {
		s.rows = map[uuid.UUID]*models.Settlement{}
	}
	s.rows[settlement.ID] = settlement
	return settlement, nil
}

func (s *stubSettlementsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	settlement, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *settlement
	return &copied, nil
}

func (s *stubSettlementsRepo) ExistsActive(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	for _, settlement := range s.rows {
		if settlement.PartyType == partyType && settlement.PartyID == partyID &&
			settlement.PeriodStart.Equal(periodStart) && settlement.PeriodEnd.Equal(periodEnd) &&
			settlement.Status != enums.SettlementStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSettlementsRepo) ListByParty(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) ([]models.Settlement, error) {
	var out []models.Settlement
	for _, settlement := range s.rows {
		if settlement.PartyType == partyType && settlement.PartyID == partyID {
			out = append(out, *settlement)
		}
	}
	return out, nil
}

func (s *stubSettlementsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementStatus, to enums.SettlementStatus, updates map[string]any) (int64, error) {
	settlement, ok := s.rows[id]
	if !ok {
		return 0, nil
	}
	eligible := false
	for _, status := range from {
		if settlement.Status == status {
			eligible = true
		}
	}
	if !eligible {
		return 0, nil
	}
	settlement.Status = to
	if at, ok := updates["paid_at"].(time.Time); ok {
		settlement.PaidAt = &at
	}
	if at, ok := updates["cancelled_at"].(time.Time); ok {
		settlement.CancelledAt = &at
	}
	return 1, nil
}

type stubOrdersRepo struct {
	lines []models.OrderItem
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindDeliveredLines(ctx context.Context, periodStart, periodEnd time.Time) ([]models.OrderItem, error) {
	return s.lines, nil
}

func (s *stubOrdersRepo) DistinctSellers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, line := range s.lines {
		if !seen[line.SellerID] {
			seen[line.SellerID] = true
			ids = append(ids, line.SellerID)
		}
	}
	return ids, nil
}

func (s *stubOrdersRepo) DistinctSuppliers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, line := range s.lines {
		if !seen[line.SupplierID] {
			seen[line.SupplierID] = true
			ids = append(ids, line.SupplierID)
		}
	}
	return ids, nil
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

type settlementFixture struct {
	repo     *stubSettlementsRepo
	orders   *stubOrdersRepo
	outbox   *stubOutboxPublisher
	svc      Service
	seller   uuid.UUID
	supplier uuid.UUID
	start    time.Time
	end      time.Time
}

func newSettlementFixture(t *testing.T, withLines bool) *settlementFixture {
	t.Helper()

	seller := uuid.New()
	supplier := uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	ordersRepo := &stubOrdersRepo{}
	if withLines {
		rate := decimal.RequireFromString("2.5")
		ordersRepo.lines = []models.OrderItem{
			{
				ID: uuid.New(), OrderID: uuid.New(),
				SellerID: seller, SupplierID: supplier,
				ProductName: "Ceramic Mug", Quantity: 2,
				SalePriceSnapshot: 10000, BasePriceSnapshot: 6000,
				CommissionAmount: 250, CommissionType: enums.CommissionTypeRate, CommissionRate: rate,
			},
		}
	}

	repo := &stubSettlementsRepo{}
	publisher := &stubOutboxPublisher{}
	cfg := config.SettlementConfig{PlatformPartyID: "00000000-0000-0000-0000-000000000001"}
	svc, err := NewService(repo, ordersRepo, stubTxRunner{}, publisher, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &settlementFixture{
		repo:     repo,
		orders:   ordersRepo,
		outbox:   publisher,
		svc:      svc,
		seller:   seller,
		supplier: supplier,
		start:    start,
		end:      end,
	}
}

func TestCreateSettlementSnapshotsLines(t *testing.T) {
	f := newSettlementFixture(t, true)

	settlement, err := f.svc.Create(context.Background(), CreateInput{
		PartyType:   enums.PartyTypeSeller,
		PartyID:     f.seller,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// margin (10000-6000)x2 = 8000, minus the 250 line commission
	if settlement.PayableAmount != 7750 {
		t.Fatalf("expected payable 7750, got %d", settlement.PayableAmount)
	}
	if len(settlement.Items) != 1 {
		t.Fatalf("expected 1 snapshot item, got %d", len(settlement.Items))
	}
	item := settlement.Items[0]
	if item.MarginAmountSnapshot != 8000 || item.CommissionAmountSnapshot != 250 {
		t.Fatalf("unexpected snapshot %+v", item)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventSettlementCreated {
		t.Fatalf("unexpected events %+v", f.outbox.events)
	}
}

func TestCreateSettlementEmptyPeriod(t *testing.T) {
	f := newSettlementFixture(t, false)

	settlement, err := f.svc.Create(context.Background(), CreateInput{
		PartyType:   enums.PartyTypeSeller,
		PartyID:     f.seller,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	})
	if err != nil {
		t.Fatalf("empty period must not fail: %v", err)
	}
	if settlement.PayableAmount != 0 || settlement.ItemCount != 0 {
		t.Fatalf("expected zero settlement, got %+v", settlement)
	}
}

func TestCreateSettlementDuplicate(t *testing.T) {
	f := newSettlementFixture(t, true)

	input := CreateInput{
		PartyType:   enums.PartyTypeSeller,
		PartyID:     f.seller,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	}
	if _, err := f.svc.Create(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.Create(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSettlement) {
		t.Fatalf("expected duplicate settlement, got %v", err)
	}
}

func TestCreateSettlementAfterCancelAllowed(t *testing.T) {
	f := newSettlementFixture(t, true)

	input := CreateInput{
		PartyType:   enums.PartyTypeSeller,
		PartyID:     f.seller,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	}
	first, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), input); err != nil {
		t.Fatalf("recreate after cancel must succeed: %v", err)
	}
}

func TestBatchCreateDiscoversParties(t *testing.T) {
	f := newSettlementFixture(t, true)

	result, err := f.svc.BatchCreate(context.Background(), BatchCreateInput{
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// one seller, one supplier, plus the platform
	if len(result.Created) != 3 {
		t.Fatalf("expected 3 settlements, got %d", len(result.Created))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if result.Err() != nil {
		t.Fatalf("unexpected combined error %v", result.Err())
	}
}

func TestBatchCreateCollectsPartyErrors(t *testing.T) {
	f := newSettlementFixture(t, true)

	// Pre-settle the seller so the batch run hits a duplicate.
	if _, err := f.svc.Create(context.Background(), CreateInput{
		PartyType:   enums.PartyTypeSeller,
		PartyID:     f.seller,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.svc.BatchCreate(context.Background(), BatchCreateInput{
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	})
	if err != nil {
		t.Fatalf("batch run itself must not abort: %v", err)
	}
	if len(result.Created) != 2 {
		t.Fatalf("expected supplier and platform settlements, got %d", len(result.Created))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 party error, got %+v", result.Errors)
	}
	if !pkgerrors.HasCode(result.Errors[0].Err, pkgerrors.CodeDuplicateSettlement) {
		t.Fatalf("unexpected party error %v", result.Errors[0].Err)
	}
	if result.Err() == nil {
		t.Fatal("combined error must surface the failed party")
	}
}

func TestSettlementLifecycle(t *testing.T) {
	f := newSettlementFixture(t, true)

	settlement, err := f.svc.Create(context.Background(), CreateInput{
		PartyType:   enums.PartyTypeSupplier,
		PartyID:     f.supplier,
		PeriodStart: f.start,
		PeriodEnd:   f.end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.MarkPaid(context.Background(), settlement.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("pending settlement cannot be paid directly, got %v", err)
	}

	if _, err := f.svc.StartProcessing(context.Background(), settlement.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paid, err := f.svc.MarkPaid(context.Background(), settlement.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != enums.SettlementStatusPaid || paid.PaidAt == nil {
		t.Fatalf("unexpected settlement %+v", paid)
	}

	_, err = f.svc.Cancel(context.Background(), settlement.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("paid settlement cannot be cancelled, got %v", err)
	}
}
