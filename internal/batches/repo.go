package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
)

// Repository persists settlement batches and the commission assignment
// sweep. Assignment only touches confirmed, unassigned commissions, so
// re-running it is harmless.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.SettlementBatch) (*models.SettlementBatch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error)
	FindOpenBatches(ctx context.Context, limit int) ([]models.SettlementBatch, error)
	AssignCommissions(ctx context.Context, batchID, partnerID uuid.UUID, periodStart, periodEnd time.Time) (int64, error)
	BatchTotals(ctx context.Context, batchID uuid.UUID) (count int64, total int64, err error)
	UpdateTotals(ctx context.Context, batchID uuid.UUID, count, total, fee, net int64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementBatchStatus, to enums.SettlementBatchStatus, updates map[string]any) (int64, error)
	ReleaseCommissions(ctx context.Context, batchID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a batches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.SettlementBatch) (*models.SettlementBatch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindOpenBatches(ctx context.Context, limit int) ([]models.SettlementBatch, error) {
	var batches []models.SettlementBatch
	q := r.db.WithContext(ctx).
		Where("status = ?", enums.BatchStatusOpen).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// AssignCommissions sweeps the partner's confirmed, unassigned
// commissions whose confirmation falls in [periodStart, periodEnd) into
// the batch.
func (r *repository) AssignCommissions(ctx context.Context, batchID, partnerID uuid.UUID, periodStart, periodEnd time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("partner_id = ? AND status = ? AND batch_id IS NULL", partnerID, enums.CommissionStatusConfirmed).
		Where("confirmed_at >= ? AND confirmed_at < ?", periodStart, periodEnd).
		Update("batch_id", batchID)
	return res.RowsAffected, res.Error
}

func (r *repository) BatchTotals(ctx context.Context, batchID uuid.UUID) (int64, int64, error) {
	var totals struct {
		Count int64
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Select("COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS total").
		Where("batch_id = ?", batchID).
		Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}
	return totals.Count, totals.Total, nil
}

func (r *repository) UpdateTotals(ctx context.Context, batchID uuid.UUID, count, total, fee, net int64) error {
	return r.db.WithContext(ctx).Model(&models.SettlementBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]any{
			"conversion_count":        count,
			"total_commission_amount": total,
			"platform_fee_amount":     fee,
			"net_amount":              net,
		}).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.SettlementBatchStatus, to enums.SettlementBatchStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for key, value := range updates {
		values[key] = value
	}
	res := r.db.WithContext(ctx).Model(&models.SettlementBatch{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	return res.RowsAffected, res.Error
}

// ReleaseCommissions unassigns every commission in a cancelled batch so
// a future batch can sweep them again.
func (r *repository) ReleaseCommissions(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PartnerCommission{}).
		Where("batch_id = ?", batchID).
		Update("batch_id", nil).Error
}
