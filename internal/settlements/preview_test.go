package settlements

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

func previewLines(sellerA, sellerB, supplier uuid.UUID) []models.OrderItem {
	rate := decimal.RequireFromString("2.5")
	return []models.OrderItem{
		{
			ID: uuid.New(), OrderID: uuid.New(),
			SellerID: sellerA, SupplierID: supplier,
			ProductName: "Ceramic Mug", Quantity: 2,
			SalePriceSnapshot: 10000, BasePriceSnapshot: 6000,
			CommissionAmount: 250, CommissionType: enums.CommissionTypeRate, CommissionRate: rate,
		},
		{
			ID: uuid.New(), OrderID: uuid.New(),
			SellerID: sellerA, SupplierID: supplier,
			ProductName: "Tea Kettle", Quantity: 1,
			SalePriceSnapshot: 20000, BasePriceSnapshot: 12000,
			CommissionAmount: 500, CommissionType: enums.CommissionTypeRate, CommissionRate: rate,
		},
		{
			ID: uuid.New(), OrderID: uuid.New(),
			SellerID: sellerB, SupplierID: supplier,
			ProductName: "Table Lamp", Quantity: 1,
			SalePriceSnapshot: 50000, BasePriceSnapshot: 30000,
			CommissionAmount: 1250, CommissionType: enums.CommissionTypeRate, CommissionRate: rate,
		},
	}
}

func TestBuildPreviewSeller(t *testing.T) {
	sellerA, sellerB, supplier := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	preview := buildPreview(enums.PartyTypeSeller, sellerA, start, end, previewLines(sellerA, sellerB, supplier))

	assert.Equal(t, int64(2), preview.ItemCount)
	// line totals are unit price times quantity: 10000x2 + 20000x1
	assert.Equal(t, int64(40000), preview.TotalSaleAmount)
	assert.Equal(t, int64(24000), preview.TotalBaseAmount)
	assert.Equal(t, int64(750), preview.TotalCommissionAmount)
	assert.Equal(t, int64(16000), preview.TotalMarginAmount)
	// seller payable = margin - commission
	assert.Equal(t, int64(15250), preview.PayableAmount)
}

func TestBuildPreviewMultipliesByQuantity(t *testing.T) {
	seller, supplier := uuid.New(), uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	lines := []models.OrderItem{
		{
			ID: uuid.New(), OrderID: uuid.New(),
			SellerID: seller, SupplierID: supplier,
			ProductName: "Ceramic Mug", Quantity: 3,
			SalePriceSnapshot: 10000, BasePriceSnapshot: 6000,
			CommissionAmount: 750, CommissionType: enums.CommissionTypeRate,
			CommissionRate: decimal.RequireFromString("2.5"),
		},
	}

	preview := buildPreview(enums.PartyTypeSeller, seller, start, end, lines)

	assert.Equal(t, int64(30000), preview.TotalSaleAmount)
	assert.Equal(t, int64(18000), preview.TotalBaseAmount)
	assert.Equal(t, int64(12000), preview.TotalMarginAmount)
	assert.Equal(t, int64(11250), preview.PayableAmount)
}

func TestBuildPreviewSupplier(t *testing.T) {
	sellerA, sellerB, supplier := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	preview := buildPreview(enums.PartyTypeSupplier, supplier, start, end, previewLines(sellerA, sellerB, supplier))

	assert.Equal(t, int64(3), preview.ItemCount)
	// supplier payable = base cost of all supplied units
	assert.Equal(t, int64(54000), preview.PayableAmount)
}

func TestBuildPreviewPlatform(t *testing.T) {
	sellerA, sellerB, supplier := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	preview := buildPreview(enums.PartyTypePlatform, uuid.New(), start, end, previewLines(sellerA, sellerB, supplier))

	assert.Equal(t, int64(3), preview.ItemCount)
	// platform payable = all commission
	assert.Equal(t, int64(2000), preview.PayableAmount)
}

func TestBuildPreviewEmptyPeriod(t *testing.T) {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	preview := buildPreview(enums.PartyTypeSeller, uuid.New(), start, end, nil)

	assert.Zero(t, preview.PayableAmount)
	assert.Zero(t, preview.ItemCount)
	assert.Empty(t, preview.Lines)
}

func TestPartyPayablesCoverFullSale(t *testing.T) {
	sellerA, sellerB, supplier := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	lines := previewLines(sellerA, sellerB, supplier)

	a := buildPreview(enums.PartyTypeSeller, sellerA, start, end, lines)
	b := buildPreview(enums.PartyTypeSeller, sellerB, start, end, lines)
	sup := buildPreview(enums.PartyTypeSupplier, supplier, start, end, lines)
	platform := buildPreview(enums.PartyTypePlatform, uuid.New(), start, end, lines)

	// Every sale unit lands with exactly one party.
	total := a.PayableAmount + b.PayableAmount + sup.PayableAmount + platform.PayableAmount
	assert.Equal(t, platform.TotalSaleAmount, total)
}
