package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnerledger/backend/pkg/enums"
)

// OrderItem is one order line in the read model. Prices are unit
// amounts; commission is precomputed for the whole line at order time.
// Margin is always derived from the unit prices and quantity.
type OrderItem struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID          uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	SupplierID        uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null;index"`
	ProductName       string               `gorm:"column:product_name;type:text;not null"`
	ProductType       enums.ProductType    `gorm:"column:product_type;type:product_type;not null;default:'general'"`
	Quantity          int64                `gorm:"column:quantity;not null"`
	SalePriceSnapshot int64                `gorm:"column:sale_price_snapshot;not null"`
	BasePriceSnapshot int64                `gorm:"column:base_price_snapshot;not null"`
	CommissionAmount  int64                `gorm:"column:commission_amount;not null;default:0"`
	CommissionType    enums.CommissionType `gorm:"column:commission_type;type:commission_type;not null;default:'rate'"`
	CommissionRate    decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
}
