package enums

import "fmt"

// SettlementBatchStatus tracks an affiliate settlement batch.
// Allowed transitions: open -> closed -> processing -> paid;
// cancelled is reachable from open or closed only.
type SettlementBatchStatus string

const (
	BatchStatusOpen       SettlementBatchStatus = "open"
	BatchStatusClosed     SettlementBatchStatus = "closed"
	BatchStatusProcessing SettlementBatchStatus = "processing"
	BatchStatusPaid       SettlementBatchStatus = "paid"
	BatchStatusCancelled  SettlementBatchStatus = "cancelled"
)

var validSettlementBatchStatuses = []SettlementBatchStatus{
	BatchStatusOpen,
	BatchStatusClosed,
	BatchStatusProcessing,
	BatchStatusPaid,
	BatchStatusCancelled,
}

// String implements fmt.Stringer.
func (s SettlementBatchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementBatchStatus.
func (s SettlementBatchStatus) IsValid() bool {
	for _, candidate := range validSettlementBatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementBatchStatus converts raw input into a SettlementBatchStatus.
func ParseSettlementBatchStatus(value string) (SettlementBatchStatus, error) {
	for _, candidate := range validSettlementBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement batch status %q", value)
}
