package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// PartnerLink is a trackable URL owned by a partner.
type PartnerLink struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID       uuid.UUID            `gorm:"column:partner_id;type:uuid;not null;index"`
	ShortCode       string               `gorm:"column:short_code;type:text;not null;uniqueIndex"`
	OriginalURL     string               `gorm:"column:original_url;type:text;not null"`
	TargetType      enums.LinkTargetType `gorm:"column:target_type;type:link_target_type;not null"`
	TargetID        *uuid.UUID           `gorm:"column:target_id;type:uuid"`
	ProductType     enums.ProductType    `gorm:"column:product_type;type:product_type;not null;default:'general'"`
	Status          enums.LinkStatus     `gorm:"column:status;type:link_status;not null;default:'active'"`
	ClickCount      int64                `gorm:"column:click_count;not null;default:0"`
	AttributionDays int                  `gorm:"column:attribution_days;not null;default:30"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
