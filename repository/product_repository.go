package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sairanjith101/acme-importer/models"
)

// ProductRepository is the relational surface for the product table. The
// bulk tasks use Count/DeleteBatch/UpsertBatch; the CRUD methods back the
// catalog endpoints.
type ProductRepository interface {
	Count(ctx context.Context) (int64, error)
	// DeleteBatch removes up to limit arbitrary rows and reports how many
	// went away. Selection order is unspecified.
	DeleteBatch(ctx context.Context, limit int) (int64, error)
	// UpsertBatch inserts rows keyed on sku, overwriting name/description and
	// keeping the existing price when the incoming one is nil. Atomic per call.
	UpsertBatch(ctx context.Context, rows []models.Product) error

	Find(ctx context.Context, search string, limit, offset int) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}

func (r *productRepository) DeleteBatch(ctx context.Context, limit int) (int64, error) {
	// Delete-by-subselect bounds the batch without needing a stable scan of
	// the shrinking table.
	tx := r.db.WithContext(ctx).Exec(
		"DELETE FROM products WHERE id IN (SELECT id FROM products LIMIT ?)", limit,
	)
	return tx.RowsAffected, tx.Error
}

func (r *productRepository) UpsertBatch(ctx context.Context, rows []models.Product) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":        gorm.Expr("excluded.name"),
			"description": gorm.Expr("excluded.description"),
			"price":       gorm.Expr("COALESCE(excluded.price, products.price)"),
			"updated_at":  gorm.Expr("NOW()"),
		}),
	}).Create(&rows).Error
}

func (r *productRepository) Find(ctx context.Context, search string, limit, offset int) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ? OR description ILIKE ?", pattern, pattern, pattern)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
