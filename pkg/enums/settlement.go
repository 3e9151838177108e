package enums

import "fmt"

// SettlementStatus tracks a multi-party settlement.
// Allowed transitions: pending -> processing -> paid;
// cancelled is reachable from pending or processing.
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"
	SettlementStatusProcessing SettlementStatus = "processing"
	SettlementStatusPaid       SettlementStatus = "paid"
	SettlementStatusCancelled  SettlementStatus = "cancelled"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusProcessing,
	SettlementStatusPaid,
	SettlementStatusCancelled,
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}

// PartyType identifies the beneficiary of a multi-party settlement.
type PartyType string

const (
	PartyTypeSeller   PartyType = "seller"
	PartyTypeSupplier PartyType = "supplier"
	PartyTypePlatform PartyType = "platform"
)

var validPartyTypes = []PartyType{
	PartyTypeSeller,
	PartyTypeSupplier,
	PartyTypePlatform,
}

// String implements fmt.Stringer.
func (p PartyType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartyType.
func (p PartyType) IsValid() bool {
	for _, candidate := range validPartyTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartyType converts raw input into a PartyType.
func ParsePartyType(value string) (PartyType, error) {
	for _, candidate := range validPartyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party type %q", value)
}
