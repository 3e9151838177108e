package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnerledger/backend/pkg/enums"
)

// ConversionCreatedEvent is emitted when an order is attributed to a click.
type ConversionCreatedEvent struct {
	ConversionID uuid.UUID              `json:"conversion_id"`
	PartnerID    uuid.UUID              `json:"partner_id"`
	ClickID      uuid.UUID              `json:"click_id"`
	OrderID      uuid.UUID              `json:"order_id"`
	OrderAmount  int64                  `json:"order_amount"`
	Status       enums.ConversionStatus `json:"status"`
}

// ConversionStatusChangedEvent carries the before/after statuses of a
// conversion transition.
type ConversionStatusChangedEvent struct {
	ConversionID uuid.UUID              `json:"conversion_id"`
	PartnerID    uuid.UUID              `json:"partner_id"`
	OrderID      uuid.UUID              `json:"order_id"`
	OldStatus    enums.ConversionStatus `json:"old_status"`
	NewStatus    enums.ConversionStatus `json:"new_status"`
	Reason       string                 `json:"reason,omitempty"`
}

// CommissionCreatedEvent is emitted when a commission is derived from a
// confirmed conversion.
type CommissionCreatedEvent struct {
	CommissionID     uuid.UUID       `json:"commission_id"`
	ConversionID     uuid.UUID       `json:"conversion_id"`
	PartnerID        uuid.UUID       `json:"partner_id"`
	BaseAmount       int64           `json:"base_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount int64           `json:"commission_amount"`
}

// CommissionStatusChangedEvent carries the before/after statuses of a
// commission transition, including adjustments.
type CommissionStatusChangedEvent struct {
	CommissionID uuid.UUID              `json:"commission_id"`
	PartnerID    uuid.UUID              `json:"partner_id"`
	OldStatus    enums.CommissionStatus `json:"old_status"`
	NewStatus    enums.CommissionStatus `json:"new_status"`
	OldAmount    int64                  `json:"old_amount"`
	NewAmount    int64                  `json:"new_amount"`
	Note         string                 `json:"note,omitempty"`
}

// CommissionReversedEvent links a reversal entry to the commission it
// backs out.
type CommissionReversedEvent struct {
	CommissionID uuid.UUID `json:"commission_id"`
	ReversalID   uuid.UUID `json:"reversal_id"`
	PartnerID    uuid.UUID `json:"partner_id"`
	Amount       int64     `json:"amount"`
	Reason       string    `json:"reason,omitempty"`
}

// BatchCreatedEvent is emitted when an affiliate settlement batch opens.
type BatchCreatedEvent struct {
	BatchID     uuid.UUID `json:"batch_id"`
	PartnerID   uuid.UUID `json:"partner_id"`
	BatchNumber string    `json:"batch_number"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// BatchCommissionsAssignedEvent reports batch totals after assignment.
type BatchCommissionsAssignedEvent struct {
	BatchID               uuid.UUID `json:"batch_id"`
	PartnerID             uuid.UUID `json:"partner_id"`
	ConversionCount       int64     `json:"conversion_count"`
	TotalCommissionAmount int64     `json:"total_commission_amount"`
	NetAmount             int64     `json:"net_amount"`
}

// BatchStatusChangedEvent carries the before/after statuses of a batch
// transition.
type BatchStatusChangedEvent struct {
	BatchID   uuid.UUID                   `json:"batch_id"`
	PartnerID uuid.UUID                   `json:"partner_id"`
	OldStatus enums.SettlementBatchStatus `json:"old_status"`
	NewStatus enums.SettlementBatchStatus `json:"new_status"`
	PaidAt    *time.Time                  `json:"paid_at,omitempty"`
}

// SettlementCreatedEvent is emitted when a multi-party settlement is
// persisted with its line snapshots.
type SettlementCreatedEvent struct {
	SettlementID  uuid.UUID       `json:"settlement_id"`
	PartyType     enums.PartyType `json:"party_type"`
	PartyID       uuid.UUID       `json:"party_id"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	PayableAmount int64           `json:"payable_amount"`
	ItemCount     int64           `json:"item_count"`
}

// SettlementStatusChangedEvent carries the before/after statuses of a
// settlement transition.
type SettlementStatusChangedEvent struct {
	SettlementID uuid.UUID              `json:"settlement_id"`
	PartyType    enums.PartyType        `json:"party_type"`
	PartyID      uuid.UUID              `json:"party_id"`
	OldStatus    enums.SettlementStatus `json:"old_status"`
	NewStatus    enums.SettlementStatus `json:"new_status"`
	PaidAt       *time.Time             `json:"paid_at,omitempty"`
}

// NotificationRequestedEvent tells downstream systems to alert a party.
type NotificationRequestedEvent struct {
	PartyID uuid.UUID              `json:"party_id"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
}
