package enums

import "strings"

// DeviceType is derived from the click user agent.
type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeUnknown DeviceType = "unknown"
)

var validDeviceTypes = []DeviceType{
	DeviceTypeDesktop,
	DeviceTypeMobile,
	DeviceTypeTablet,
	DeviceTypeUnknown,
}

// IsValid reports whether the value is a known DeviceType.
func (d DeviceType) IsValid() bool {
	for _, candidate := range validDeviceTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// DeviceTypeFromUserAgent classifies a raw user agent string. Tablets are
// checked before mobile because tablet agents usually carry both markers.
func DeviceTypeFromUserAgent(userAgent string) DeviceType {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return DeviceTypeUnknown
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTypeTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return DeviceTypeMobile
	default:
		return DeviceTypeDesktop
	}
}
