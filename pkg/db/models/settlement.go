package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// Settlement is one party's payable for one accounting period. At most
// one non-cancelled settlement exists per (party type, party, period).
type Settlement struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartyType             enums.PartyType        `gorm:"column:party_type;type:party_type;not null;index:idx_settlements_party"`
	PartyID               uuid.UUID              `gorm:"column:party_id;type:uuid;not null;index:idx_settlements_party"`
	PeriodStart           time.Time              `gorm:"column:period_start;not null"`
	PeriodEnd             time.Time              `gorm:"column:period_end;not null"`
	TotalSaleAmount       int64                  `gorm:"column:total_sale_amount;not null;default:0"`
	TotalBaseAmount       int64                  `gorm:"column:total_base_amount;not null;default:0"`
	TotalCommissionAmount int64                  `gorm:"column:total_commission_amount;not null;default:0"`
	TotalMarginAmount     int64                  `gorm:"column:total_margin_amount;not null;default:0"`
	PayableAmount         int64                  `gorm:"column:payable_amount;not null;default:0"`
	ItemCount             int64                  `gorm:"column:item_count;not null;default:0"`
	Status                enums.SettlementStatus `gorm:"column:status;type:settlement_status;not null;default:'pending'"`
	Memo                  *string                `gorm:"column:memo;type:text"`
	PaidAt                *time.Time             `gorm:"column:paid_at"`
	CancelledAt           *time.Time             `gorm:"column:cancelled_at"`
	Items                 []SettlementItem       `gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// settlementTransitions encodes the settlement state machine.
var settlementTransitions = map[enums.SettlementStatus][]enums.SettlementStatus{
	enums.SettlementStatusPending:    {enums.SettlementStatusProcessing, enums.SettlementStatusCancelled},
	enums.SettlementStatusProcessing: {enums.SettlementStatusPaid, enums.SettlementStatusCancelled},
}

// CanTransitionTo reports whether the settlement may move to target from
// its current status. Paid and cancelled are terminal.
func (s *Settlement) CanTransitionTo(target enums.SettlementStatus) bool {
	for _, allowed := range settlementTransitions[s.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}
