package enums

import "fmt"

// LinkStatus maps to the link_status enum in Postgres.
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusInactive LinkStatus = "inactive"
	LinkStatusExpired  LinkStatus = "expired"
)

var validLinkStatuses = []LinkStatus{
	LinkStatusActive,
	LinkStatusInactive,
	LinkStatusExpired,
}

// String implements fmt.Stringer.
func (l LinkStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LinkStatus.
func (l LinkStatus) IsValid() bool {
	for _, candidate := range validLinkStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLinkStatus converts raw input into a LinkStatus.
func ParseLinkStatus(value string) (LinkStatus, error) {
	for _, candidate := range validLinkStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid link status %q", value)
}

// LinkTargetType identifies what a partner link points at.
type LinkTargetType string

const (
	LinkTargetProduct  LinkTargetType = "product"
	LinkTargetCategory LinkTargetType = "category"
	LinkTargetPage     LinkTargetType = "page"
)

var validLinkTargetTypes = []LinkTargetType{
	LinkTargetProduct,
	LinkTargetCategory,
	LinkTargetPage,
}

// IsValid reports whether the value is a known LinkTargetType.
func (l LinkTargetType) IsValid() bool {
	for _, candidate := range validLinkTargetTypes {
		if candidate == l {
			return true
		}
	}
	return false
}
