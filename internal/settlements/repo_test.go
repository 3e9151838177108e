package settlements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

func setupSettlementsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	settlements := `
CREATE TABLE IF NOT EXISTS settlements (
  id TEXT PRIMARY KEY,
  party_type TEXT NOT NULL,
  party_id TEXT NOT NULL,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  total_sale_amount INTEGER NOT NULL DEFAULT 0,
  total_base_amount INTEGER NOT NULL DEFAULT 0,
  total_commission_amount INTEGER NOT NULL DEFAULT 0,
  total_margin_amount INTEGER NOT NULL DEFAULT 0,
  payable_amount INTEGER NOT NULL DEFAULT 0,
  item_count INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  memo TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS settlement_items (
  id TEXT PRIMARY KEY,
  settlement_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  sale_price_snapshot INTEGER NOT NULL,
  base_price_snapshot INTEGER NOT NULL,
  commission_amount_snapshot INTEGER NOT NULL,
  margin_amount_snapshot INTEGER NOT NULL,
  commission_type TEXT NOT NULL DEFAULT 'rate',
  commission_rate TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(settlements).Error)
	require.NoError(t, db.Exec(items).Error)
	return db
}

func newSettlement(t *testing.T, db *gorm.DB, st enums.SettlementStatus, partyID uuid.UUID, start, end time.Time) *models.Settlement {
	t.Helper()

	settlement := &models.Settlement{
		ID:          uuid.New(),
		PartyType:   enums.PartyTypeSeller,
		PartyID:     partyID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      st,
	}
	require.NoError(t, db.Create(settlement).Error)
	return settlement
}

func TestExistsActiveIgnoresCancelled(t *testing.T) {
	db := setupSettlementsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partyID := uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	newSettlement(t, db, enums.SettlementStatusCancelled, partyID, start, end)

	exists, err := repo.ExistsActive(ctx, enums.PartyTypeSeller, partyID, start, end)
	require.NoError(t, err)
	assert.False(t, exists, "cancelled settlements must not block a retry")

	newSettlement(t, db, enums.SettlementStatusPending, partyID, start, end)

	exists, err = repo.ExistsActive(ctx, enums.PartyTypeSeller, partyID, start, end)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateStatusConditionalSettlement(t *testing.T) {
	db := setupSettlementsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	settlement := newSettlement(t, db, enums.SettlementStatusPending, uuid.New(), start, start.AddDate(0, 1, 0))

	rows, err := repo.UpdateStatus(ctx, settlement.ID,
		[]enums.SettlementStatus{enums.SettlementStatusPending},
		enums.SettlementStatusProcessing, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.UpdateStatus(ctx, settlement.ID,
		[]enums.SettlementStatus{enums.SettlementStatusPending},
		enums.SettlementStatusProcessing, nil)
	require.NoError(t, err)
	assert.Zero(t, rows)

	now := time.Now().UTC()
	rows, err = repo.UpdateStatus(ctx, settlement.ID,
		[]enums.SettlementStatus{enums.SettlementStatusProcessing},
		enums.SettlementStatusPaid, map[string]any{"paid_at": now})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := repo.FindByID(ctx, settlement.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
}
