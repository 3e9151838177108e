package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_type TEXT NOT NULL DEFAULT 'general',
  quantity INTEGER NOT NULL,
  sale_price_snapshot INTEGER NOT NULL,
  base_price_snapshot INTEGER NOT NULL,
  commission_amount INTEGER NOT NULL DEFAULT 0,
  commission_type TEXT NOT NULL DEFAULT 'rate',
  commission_rate TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	return db
}

func newDeliveredOrder(t *testing.T, db *gorm.DB, createdAt time.Time, sellerID, supplierID uuid.UUID) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Status:  enums.OrderStatusDelivered,
	}
	require.NoError(t, db.Create(order).Error)
	// autoCreateTime stamps now(); pin the period column explicitly.
	require.NoError(t, db.Model(order).UpdateColumn("created_at", createdAt).Error)

	item := &models.OrderItem{
		ID:                uuid.New(),
		OrderID:           order.ID,
		SellerID:          sellerID,
		SupplierID:        supplierID,
		ProductName:       "Ceramic Mug",
		ProductType:       enums.ProductTypeGeneral,
		Quantity:          2,
		SalePriceSnapshot: 10000,
		BasePriceSnapshot: 6000,
		CommissionAmount:  250,
		CommissionType:    enums.CommissionTypeRate,
		CommissionRate:    decimal.RequireFromString("2.5"),
	}
	require.NoError(t, db.Create(item).Error)
	return order
}

func TestFindDeliveredLinesFiltersPeriodAndStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)

	seller := uuid.New()
	supplier := uuid.New()
	inPeriod := newDeliveredOrder(t, db, start.Add(24*time.Hour), seller, supplier)
	newDeliveredOrder(t, db, end.Add(time.Hour), seller, supplier)

	pending := &models.Order{ID: uuid.New(), BuyerID: uuid.New(), Status: enums.OrderStatusPending}
	require.NoError(t, db.Create(pending).Error)
	require.NoError(t, db.Model(pending).UpdateColumn("created_at", start.Add(time.Hour)).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		ID: uuid.New(), OrderID: pending.ID, SellerID: seller, SupplierID: supplier,
		ProductName: "Tea Kettle", Quantity: 1,
		SalePriceSnapshot: 5000, BasePriceSnapshot: 3000,
		CommissionType: enums.CommissionTypeRate, CommissionRate: decimal.RequireFromString("2.5"),
	}).Error)

	lines, err := repo.FindDeliveredLines(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, inPeriod.ID, lines[0].OrderID)
}

func TestFindDeliveredLinesExcludesPharmaceutical(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)

	seller := uuid.New()
	supplier := uuid.New()
	order := newDeliveredOrder(t, db, start.Add(time.Hour), seller, supplier)

	pharmaSeller := uuid.New()
	require.NoError(t, db.Create(&models.OrderItem{
		ID: uuid.New(), OrderID: order.ID, SellerID: pharmaSeller, SupplierID: supplier,
		ProductName: "Aspirin", ProductType: enums.ProductTypePharmaceutical, Quantity: 1,
		SalePriceSnapshot: 900, BasePriceSnapshot: 400,
		CommissionType: enums.CommissionTypeRate, CommissionRate: decimal.RequireFromString("2.5"),
	}).Error)

	lines, err := repo.FindDeliveredLines(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, enums.ProductTypeGeneral, lines[0].ProductType)

	// Party discovery applies the same exclusion, so pharma-only sellers
	// never get a settlement.
	sellers, err := repo.DistinctSellers(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{seller}, sellers)
}

func TestDistinctParties(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)

	seller := uuid.New()
	supplier := uuid.New()
	newDeliveredOrder(t, db, start.Add(time.Hour), seller, supplier)
	newDeliveredOrder(t, db, start.Add(2*time.Hour), seller, supplier)

	sellers, err := repo.DistinctSellers(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{seller}, sellers)

	suppliers, err := repo.DistinctSuppliers(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{supplier}, suppliers)
}
