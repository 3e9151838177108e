package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnerledger/backend/pkg/enums"
)

// PartnerCommission is the computed payout for one conversion. Exactly
// one commission exists per conversion; FinalAmount is what accrues to
// Partner.TotalCommission exactly once, on confirmation. A reversal is
// a second row with a negative FinalAmount pointing back via
// ReversalOfID.
type PartnerCommission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	// Uniqueness of conversion_id is a partial index (reversal rows are
	// exempt); see migrations.
	ConversionID     uuid.UUID              `gorm:"column:conversion_id;type:uuid;not null;index"`
	PartnerID        uuid.UUID              `gorm:"column:partner_id;type:uuid;not null;index"`
	BaseAmount       int64                  `gorm:"column:base_amount;not null"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	CommissionAmount int64                  `gorm:"column:commission_amount;not null"`
	FinalAmount      int64                  `gorm:"column:final_amount;not null"`
	AdjustmentNote   *string                `gorm:"column:adjustment_note;type:text"`
	Status           enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'pending'"`
	BatchID          *uuid.UUID             `gorm:"column:batch_id;type:uuid;index"`
	ReversalOfID     *uuid.UUID             `gorm:"column:reversal_of_id;type:uuid"`
	ConfirmedAt      *time.Time             `gorm:"column:confirmed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
