package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog row keyed by its business SKU.
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SKU         string    `json:"sku" gorm:"size:200;uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:500;index"`
	Description string    `json:"description"`
	Price       *float64  `json:"price" gorm:"type:numeric(12,2)"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeSave trims the SKU so the unique constraint always sees the
// canonical form.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.SKU = strings.TrimSpace(p.SKU)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StagingProduct holds one normalized CSV row for the lifetime of a single
// import job. Price stays as text until the upsert phase coerces it.
type StagingProduct struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ImportID    string `gorm:"size:64;index;not null"`
	SKU         string `gorm:"size:200;not null"`
	Name        string `gorm:"size:500"`
	Description string
	Price       string `gorm:"size:64"`
}

func (StagingProduct) TableName() string {
	return "staging_products"
}
