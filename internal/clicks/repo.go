package clicks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
)

// Repository persists partner links and their click rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLink(ctx context.Context, link *models.PartnerLink) (*models.PartnerLink, error)
	FindLinkByID(ctx context.Context, id uuid.UUID) (*models.PartnerLink, error)
	FindLinkByShortCode(ctx context.Context, shortCode string) (*models.PartnerLink, error)
	CreateClick(ctx context.Context, click *models.PartnerClick) (*models.PartnerClick, error)
	FindClickByID(ctx context.Context, id uuid.UUID) (*models.PartnerClick, error)
	BumpLinkClickCount(ctx context.Context, linkID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a clicks repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLink(ctx context.Context, link *models.PartnerLink) (*models.PartnerLink, error) {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (r *repository) FindLinkByID(ctx context.Context, id uuid.UUID) (*models.PartnerLink, error) {
	var link models.PartnerLink
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindLinkByShortCode(ctx context.Context, shortCode string) (*models.PartnerLink, error) {
	var link models.PartnerLink
	err := r.db.WithContext(ctx).
		Where("short_code = ?", shortCode).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) CreateClick(ctx context.Context, click *models.PartnerClick) (*models.PartnerClick, error) {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return nil, err
	}
	return click, nil
}

func (r *repository) FindClickByID(ctx context.Context, id uuid.UUID) (*models.PartnerClick, error) {
	var click models.PartnerClick
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&click).Error
	if err != nil {
		return nil, err
	}
	return &click, nil
}

func (r *repository) BumpLinkClickCount(ctx context.Context, linkID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PartnerLink{}).
		Where("id = ?", linkID).
		Update("click_count", gorm.Expr("click_count + 1")).Error
}
