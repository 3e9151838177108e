package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnerledger/backend/pkg/enums"
)

// Partner is an affiliate identity. Partners are never deleted, only
// suspended or terminated. Counters and totals mutate only inside the
// same transaction as their triggering event.
type Partner struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ReferralCode     string              `gorm:"column:referral_code;type:text;not null;uniqueIndex"`
	Status           enums.PartnerStatus `gorm:"column:status;type:partner_status;not null;default:'active'"`
	Level            enums.PartnerLevel  `gorm:"column:level;type:partner_level;not null;default:'standard'"`
	CommissionRate   decimal.Decimal     `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	ClickCount       int64               `gorm:"column:click_count;not null;default:0"`
	ConversionCount  int64               `gorm:"column:conversion_count;not null;default:0"`
	TotalCommission  int64               `gorm:"column:total_commission;not null;default:0"`
	LastClickAt      *time.Time          `gorm:"column:last_click_at"`
	LastConversionAt *time.Time          `gorm:"column:last_conversion_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
