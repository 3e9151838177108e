package partners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
)

// Repository exposes partner reads and the counter mutations performed
// by the pipeline. Counter updates run inside the caller's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, partner *models.Partner) (*models.Partner, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	RecordClick(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordConversion(ctx context.Context, id uuid.UUID, at time.Time) error
	AddTotalCommission(ctx context.Context, id uuid.UUID, delta int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a partners repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, partner *models.Partner) (*models.Partner, error) {
	if err := r.db.WithContext(ctx).Create(partner).Error; err != nil {
		return nil, err
	}
	return partner, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) RecordClick(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"click_count":   gorm.Expr("click_count + 1"),
			"last_click_at": at,
		}).Error
}

func (r *repository) RecordConversion(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"conversion_count":   gorm.Expr("conversion_count + 1"),
			"last_conversion_at": at,
		}).Error
}

func (r *repository) AddTotalCommission(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ?", id).
		Update("total_commission", gorm.Expr("total_commission + ?", delta)).Error
}
