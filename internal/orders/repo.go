package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

// Repository is the read side the settlement engine aggregates over.
// Period bounds are inclusive on order creation time. Pharmaceutical
// lines never settle and are filtered out at the query level.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDeliveredLines(ctx context.Context, periodStart, periodEnd time.Time) ([]models.OrderItem, error)
	DistinctSellers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error)
	DistinctSuppliers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDeliveredLines(ctx context.Context, periodStart, periodEnd time.Time) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Where("orders.created_at >= ? AND orders.created_at <= ?", periodStart, periodEnd).
		Where("order_items.product_type <> ?", enums.ProductTypePharmaceutical).
		Order("order_items.order_id, order_items.id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DistinctSellers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	return r.distinctParty(ctx, "order_items.seller_id", periodStart, periodEnd)
}

func (r *repository) DistinctSuppliers(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	return r.distinctParty(ctx, "order_items.supplier_id", periodStart, periodEnd)
}

func (r *repository) distinctParty(ctx context.Context, column string, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Distinct(column).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Where("orders.created_at >= ? AND orders.created_at <= ?", periodStart, periodEnd).
		Where("order_items.product_type <> ?", enums.ProductTypePharmaceutical).
		Pluck(column, &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
