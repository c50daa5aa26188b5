package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/models"
)

// StagingRepository manages the per-import staging area. Rows live only for
// the duration of one import job; Purge clears them on every exit path.
type StagingRepository interface {
	CreateBatch(ctx context.Context, rows []models.StagingProduct) error
	Count(ctx context.Context, importID string) (int64, error)
	// Page returns rows in insertion order so a later duplicate SKU in the
	// file overwrites an earlier one.
	Page(ctx context.Context, importID string, offset, limit int) ([]models.StagingProduct, error)
	Purge(ctx context.Context, importID string) error
}

type stagingRepository struct {
	db *gorm.DB
}

func NewStagingRepository(db *gorm.DB) StagingRepository {
	return &stagingRepository{db: db}
}

func (r *stagingRepository) CreateBatch(ctx context.Context, rows []models.StagingProduct) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *stagingRepository) Count(ctx context.Context, importID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.StagingProduct{}).
		Where("import_id = ?", importID).Count(&total).Error
	return total, err
}

func (r *stagingRepository) Page(ctx context.Context, importID string, offset, limit int) ([]models.StagingProduct, error) {
	var rows []models.StagingProduct
	err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Order("id").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *stagingRepository) Purge(ctx context.Context, importID string) error {
	return r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Delete(&models.StagingProduct{}).Error
}
