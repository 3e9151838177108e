package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// SettlementBatch groups confirmed commissions for one partner and
// period awaiting payment. Totals must equal the sum of assigned
// commissions' FinalAmount at all times.
type SettlementBatch struct {
	ID                    uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID             uuid.UUID                   `gorm:"column:partner_id;type:uuid;not null;index"`
	BatchNumber           string                      `gorm:"column:batch_number;type:text;not null;uniqueIndex"`
	PeriodStart           time.Time                   `gorm:"column:period_start;not null"`
	PeriodEnd             time.Time                   `gorm:"column:period_end;not null"`
	PaymentDueDate        time.Time                   `gorm:"column:payment_due_date;not null"`
	ConversionCount       int64                       `gorm:"column:conversion_count;not null;default:0"`
	TotalCommissionAmount int64                       `gorm:"column:total_commission_amount;not null;default:0"`
	PlatformFeeAmount     int64                       `gorm:"column:platform_fee_amount;not null;default:0"`
	NetAmount             int64                       `gorm:"column:net_amount;not null;default:0"`
	Status                enums.SettlementBatchStatus `gorm:"column:status;type:settlement_batch_status;not null;default:'open'"`
	PaidAt                *time.Time                  `gorm:"column:paid_at"`
	PaymentMethod         *string                     `gorm:"column:payment_method;type:text"`
	PaymentReference      *string                     `gorm:"column:payment_reference;type:text"`
	CreatedAt             time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

// batchTransitions encodes the one-directional batch state machine.
var batchTransitions = map[enums.SettlementBatchStatus][]enums.SettlementBatchStatus{
	enums.BatchStatusOpen:       {enums.BatchStatusClosed, enums.BatchStatusCancelled},
	enums.BatchStatusClosed:     {enums.BatchStatusProcessing, enums.BatchStatusCancelled},
	enums.BatchStatusProcessing: {enums.BatchStatusPaid},
}

// CanTransitionTo reports whether the batch may move to target from its
// current status. Paid and cancelled are terminal.
func (b *SettlementBatch) CanTransitionTo(target enums.SettlementBatchStatus) bool {
	for _, allowed := range batchTransitions[b.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}
