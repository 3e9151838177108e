package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnerledger/backend/pkg/enums"
)

// SettlementItem snapshots one order line contributing to a settlement.
// Later changes to live order data must not alter a created settlement,
// so every price and policy value is copied at creation time.
type SettlementItem struct {
	ID                       uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SettlementID             uuid.UUID            `gorm:"column:settlement_id;type:uuid;not null;index"`
	OrderID                  uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	OrderItemID              uuid.UUID            `gorm:"column:order_item_id;type:uuid;not null"`
	SellerID                 uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	SupplierID               uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null"`
	ProductName              string               `gorm:"column:product_name;type:text;not null"`
	Quantity                 int64                `gorm:"column:quantity;not null"`
	SalePriceSnapshot        int64                `gorm:"column:sale_price_snapshot;not null"`
	BasePriceSnapshot        int64                `gorm:"column:base_price_snapshot;not null"`
	CommissionAmountSnapshot int64                `gorm:"column:commission_amount_snapshot;not null"`
	MarginAmountSnapshot     int64                `gorm:"column:margin_amount_snapshot;not null"`
	CommissionType           enums.CommissionType `gorm:"column:commission_type;type:commission_type;not null;default:'rate'"`
	CommissionRate           decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	CreatedAt                time.Time            `gorm:"column:created_at;autoCreateTime"`
}
