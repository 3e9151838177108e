package conversions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

// Repository persists conversions and performs the one-shot click claim.
// Status transitions are conditional updates; callers check the returned
// row count to detect a lost race.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, conversion *models.PartnerConversion) (*models.PartnerConversion, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PartnerConversion, error)
	FindByClickID(ctx context.Context, clickID uuid.UUID) (*models.PartnerConversion, error)
	ClaimClick(ctx context.Context, clickID uuid.UUID, at time.Time) (int64, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time, reason string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a conversions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, conversion *models.PartnerConversion) (*models.PartnerConversion, error) {
	if err := r.db.WithContext(ctx).Create(conversion).Error; err != nil {
		return nil, err
	}
	return conversion, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PartnerConversion, error) {
	var conversion models.PartnerConversion
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conversion).Error
	if err != nil {
		return nil, err
	}
	return &conversion, nil
}

func (r *repository) FindByClickID(ctx context.Context, clickID uuid.UUID) (*models.PartnerConversion, error) {
	var conversion models.PartnerConversion
	err := r.db.WithContext(ctx).
		Where("click_id = ?", clickID).
		First(&conversion).Error
	if err != nil {
		return nil, err
	}
	return &conversion, nil
}

// ClaimClick flips the click's converted flag exactly once. A zero row
// count means another conversion already owns the click.
func (r *repository) ClaimClick(ctx context.Context, clickID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerClick{}).
		Where("id = ? AND converted = ?", clickID, false).
		Updates(map[string]any{
			"converted":    true,
			"converted_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerConversion{}).
		Where("id = ? AND status = ?", id, enums.ConversionStatusPending).
		Updates(map[string]any{
			"status":       enums.ConversionStatusConfirmed,
			"confirmed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerConversion{}).
		Where("id = ? AND status IN ?", id, []enums.ConversionStatus{
			enums.ConversionStatusPending,
			enums.ConversionStatusConfirmed,
		}).
		Updates(map[string]any{
			"status":        enums.ConversionStatusCancelled,
			"cancelled_at":  at,
			"cancel_reason": reason,
		})
	return res.RowsAffected, res.Error
}
