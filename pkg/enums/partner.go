package enums

import "fmt"

// PartnerStatus maps to the partner_status enum in Postgres.
type PartnerStatus string

const (
	PartnerStatusActive     PartnerStatus = "active"
	PartnerStatusSuspended  PartnerStatus = "suspended"
	PartnerStatusTerminated PartnerStatus = "terminated"
)

var validPartnerStatuses = []PartnerStatus{
	PartnerStatusActive,
	PartnerStatusSuspended,
	PartnerStatusTerminated,
}

// String implements fmt.Stringer.
func (p PartnerStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartnerStatus.
func (p PartnerStatus) IsValid() bool {
	for _, candidate := range validPartnerStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartnerStatus converts raw input into a PartnerStatus.
func ParsePartnerStatus(value string) (PartnerStatus, error) {
	for _, candidate := range validPartnerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partner status %q", value)
}

// PartnerLevel maps to the partner_level enum in Postgres.
type PartnerLevel string

const (
	PartnerLevelStandard PartnerLevel = "standard"
	PartnerLevelPremium  PartnerLevel = "premium"
	PartnerLevelPlatinum PartnerLevel = "platinum"
)

var validPartnerLevels = []PartnerLevel{
	PartnerLevelStandard,
	PartnerLevelPremium,
	PartnerLevelPlatinum,
}

// IsValid reports whether the value is a known PartnerLevel.
func (p PartnerLevel) IsValid() bool {
	for _, candidate := range validPartnerLevels {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartnerLevel converts raw input into a PartnerLevel.
func ParsePartnerLevel(value string) (PartnerLevel, error) {
	for _, candidate := range validPartnerLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partner level %q", value)
}
