package enums

import "fmt"

// CommissionStatus tracks the lifecycle of a partner commission.
// Allowed transitions: pending -> adjusted/confirmed, adjusted -> confirmed,
// pending/adjusted -> cancelled, confirmed -> reversed.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusAdjusted  CommissionStatus = "adjusted"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusCancelled CommissionStatus = "cancelled"
	CommissionStatusReversed  CommissionStatus = "reversed"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusAdjusted,
	CommissionStatusConfirmed,
	CommissionStatusCancelled,
	CommissionStatusReversed,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionStatus.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

// CommissionType records how an order-line commission was computed.
type CommissionType string

const (
	CommissionTypeRate  CommissionType = "rate"
	CommissionTypeFixed CommissionType = "fixed"
)

var validCommissionTypes = []CommissionType{
	CommissionTypeRate,
	CommissionTypeFixed,
}

// IsValid reports whether the value is a known CommissionType.
func (c CommissionType) IsValid() bool {
	for _, candidate := range validCommissionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}
