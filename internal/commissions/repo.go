package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

// Repository persists commissions. Transitions are conditional updates;
// a zero row count means the row was not in an eligible state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commission *models.PartnerCommission) (*models.PartnerCommission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error)
	FindActiveByConversionID(ctx context.Context, conversionID uuid.UUID) (*models.PartnerCommission, error)
	MarkAdjusted(ctx context.Context, id uuid.UUID, finalAmount int64, note string) (int64, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (int64, error)
	MarkReversed(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, commission *models.PartnerCommission) (*models.PartnerCommission, error) {
	if err := r.db.WithContext(ctx).Create(commission).Error; err != nil {
		return nil, err
	}
	return commission, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PartnerCommission, error) {
	var commission models.PartnerCommission
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

// FindActiveByConversionID returns the original commission for a
// conversion, ignoring reversal rows.
func (r *repository) FindActiveByConversionID(ctx context.Context, conversionID uuid.UUID) (*models.PartnerCommission, error) {
	var commission models.PartnerCommission
	err := r.db.WithContext(ctx).
		Where("conversion_id = ? AND reversal_of_id IS NULL", conversionID).
		First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) MarkAdjusted(ctx context.Context, id uuid.UUID, finalAmount int64, note string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("id = ? AND status IN ?", id, adjustableStatuses()).
		Updates(map[string]any{
			"status":          enums.CommissionStatusAdjusted,
			"final_amount":    finalAmount,
			"adjustment_note": note,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("id = ? AND status IN ?", id, adjustableStatuses()).
		Updates(map[string]any{
			"status":       enums.CommissionStatusConfirmed,
			"confirmed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("id = ? AND status IN ?", id, adjustableStatuses()).
		Update("status", enums.CommissionStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkReversed(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("id = ? AND status = ?", id, enums.CommissionStatusConfirmed).
		Update("status", enums.CommissionStatusReversed)
	return res.RowsAffected, res.Error
}

func adjustableStatuses() []enums.CommissionStatus {
	return []enums.CommissionStatus{
		enums.CommissionStatusPending,
		enums.CommissionStatusAdjusted,
	}
}
