package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePartner         OutboxAggregateType = "partner"
	AggregateConversion      OutboxAggregateType = "conversion"
	AggregateCommission      OutboxAggregateType = "commission"
	AggregateSettlementBatch OutboxAggregateType = "settlement_batch"
	AggregateSettlement      OutboxAggregateType = "settlement"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePartner,
	AggregateConversion,
	AggregateCommission,
	AggregateSettlementBatch,
	AggregateSettlement,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventConversionCreated        OutboxEventType = "conversion_created"
	EventConversionConfirmed      OutboxEventType = "conversion_confirmed"
	EventConversionCancelled      OutboxEventType = "conversion_cancelled"
	EventCommissionCreated        OutboxEventType = "commission_created"
	EventCommissionAdjusted       OutboxEventType = "commission_adjusted"
	EventCommissionConfirmed      OutboxEventType = "commission_confirmed"
	EventCommissionCancelled      OutboxEventType = "commission_cancelled"
	EventCommissionReversed       OutboxEventType = "commission_reversed"
	EventBatchCreated             OutboxEventType = "batch_created"
	EventBatchCommissionsAssigned OutboxEventType = "batch_commissions_assigned"
	EventBatchClosed              OutboxEventType = "batch_closed"
	EventBatchProcessing          OutboxEventType = "batch_processing"
	EventBatchPaid                OutboxEventType = "batch_paid"
	EventBatchCancelled           OutboxEventType = "batch_cancelled"
	EventSettlementCreated        OutboxEventType = "settlement_created"
	EventSettlementProcessing     OutboxEventType = "settlement_processing"
	EventSettlementPaid           OutboxEventType = "settlement_paid"
	EventSettlementCancelled      OutboxEventType = "settlement_cancelled"
	EventNotificationRequested    OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventConversionCreated,
	EventConversionConfirmed,
	EventConversionCancelled,
	EventCommissionCreated,
	EventCommissionAdjusted,
	EventCommissionConfirmed,
	EventCommissionCancelled,
	EventCommissionReversed,
	EventBatchCreated,
	EventBatchCommissionsAssigned,
	EventBatchClosed,
	EventBatchProcessing,
	EventBatchPaid,
	EventBatchCancelled,
	EventSettlementCreated,
	EventSettlementProcessing,
	EventSettlementPaid,
	EventSettlementCancelled,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
