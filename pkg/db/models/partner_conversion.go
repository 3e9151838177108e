package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// PartnerConversion binds an order to a prior click. At most one
// conversion exists per click.
type PartnerConversion struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID       uuid.UUID              `gorm:"column:partner_id;type:uuid;not null;index"`
	ClickID         uuid.UUID              `gorm:"column:click_id;type:uuid;not null;uniqueIndex"`
	OrderID         uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	OrderAmount     int64                  `gorm:"column:order_amount;not null"`
	ProductType     enums.ProductType      `gorm:"column:product_type;type:product_type;not null;default:'general'"`
	Status          enums.ConversionStatus `gorm:"column:status;type:conversion_status;not null;default:'pending'"`
	AttributionDays int                    `gorm:"column:attribution_days;not null"`
	ConfirmedAt     *time.Time             `gorm:"column:confirmed_at"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at"`
	CancelReason    *string                `gorm:"column:cancel_reason;type:text"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
