package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/enums"
)

// Order is the read model consumed by the settlement engine. The
// pipeline never mutates orders; it scans delivered orders per period.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Items     []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
