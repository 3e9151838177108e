package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

// Repository persists settlements and their line snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	ExistsActive(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, periodStart, periodEnd time.Time) (bool, error)
	ListByParty(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) ([]models.Settlement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementStatus, to enums.SettlementStatus, updates map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error) {
	if err := r.db.WithContext(ctx).Create(settlement).Error; err != nil {
		return nil, err
	}
	return settlement, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&settlement).Error
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// ExistsActive reports whether a non-cancelled settlement already covers
// the exact party and period.
func (r *repository) ExistsActive(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("party_type = ? AND party_id = ?", partyType, partyID).
		Where("period_start = ? AND period_end = ?", periodStart, periodEnd).
		Where("status <> ?", enums.SettlementStatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByParty(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) ([]models.Settlement, error) {
	var settlements []models.Settlement
	err := r.db.WithContext(ctx).
		Where("party_type = ? AND party_id = ?", partyType, partyID).
		Order("period_start DESC").
		Find(&settlements).Error
	if err != nil {
		return nil, err
	}
	return settlements, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementStatus, to enums.SettlementStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for key, value := range updates {
		values[key] = value
	}
	res := r.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	return res.RowsAffected, res.Error
}
