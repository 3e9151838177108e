package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// PartnerClick is one recorded click. Rows are immutable once created
// except for the converted flag, which is set exactly once when a
// conversion claims the click.
type PartnerClick struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LinkID      uuid.UUID        `gorm:"column:link_id;type:uuid;not null;index"`
	PartnerID   uuid.UUID        `gorm:"column:partner_id;type:uuid;not null;index"`
	IPAddress   string           `gorm:"column:ip_address;type:text;not null"`
	UserAgent   string           `gorm:"column:user_agent;type:text;not null"`
	DeviceType  enums.DeviceType `gorm:"column:device_type;type:device_type;not null;default:'unknown'"`
	Referrer    *string          `gorm:"column:referrer;type:text"`
	SessionID   *string          `gorm:"column:session_id;type:text"`
	Converted   bool             `gorm:"column:converted;not null;default:false"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}
