package enums

import "fmt"

// ConversionStatus tracks the lifecycle of a partner conversion.
// Allowed transitions: pending -> confirmed, pending/confirmed -> cancelled.
type ConversionStatus string

const (
	ConversionStatusPending   ConversionStatus = "pending"
	ConversionStatusConfirmed ConversionStatus = "confirmed"
	ConversionStatusCancelled ConversionStatus = "cancelled"
)

var validConversionStatuses = []ConversionStatus{
	ConversionStatusPending,
	ConversionStatusConfirmed,
	ConversionStatusCancelled,
}

// String implements fmt.Stringer.
func (c ConversionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConversionStatus.
func (c ConversionStatus) IsValid() bool {
	for _, candidate := range validConversionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConversionStatus converts raw input into a ConversionStatus.
func ParseConversionStatus(value string) (ConversionStatus, error) {
	for _, candidate := range validConversionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversion status %q", value)
}
