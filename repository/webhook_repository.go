package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sairanjith101/acme-importer/models"
)

// WebhookRepository stores webhook subscriptions. The dispatcher only reads
// via ListEnabled/FindByID; the CRUD methods back the management endpoints.
type WebhookRepository interface {
	ListEnabled(ctx context.Context, event string) ([]models.Webhook, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error)
	List(ctx context.Context) ([]models.Webhook, error)
	Create(ctx context.Context, w *models.Webhook) error
	Update(ctx context.Context, w *models.Webhook) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type webhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) ListEnabled(ctx context.Context, event string) ([]models.Webhook, error) {
	var hooks []models.Webhook
	err := r.db.WithContext(ctx).
		Where("event = ? AND enabled = ?", event, true).
		Find(&hooks).Error
	return hooks, err
}

func (r *webhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error) {
	var w models.Webhook
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *webhookRepository) List(ctx context.Context) ([]models.Webhook, error) {
	var hooks []models.Webhook
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&hooks).Error
	return hooks, err
}

func (r *webhookRepository) Create(ctx context.Context, w *models.Webhook) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *webhookRepository) Update(ctx context.Context, w *models.Webhook) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Webhook{}, "id = ?", id).Error
}
