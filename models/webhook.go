package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Webhook is a durable subscription of one endpoint to one event type.
type Webhook struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	URL       string    `json:"url" gorm:"size:2048;not null"`
	Event     string    `json:"event" gorm:"size:100;index;not null"`
	Enabled   bool      `json:"enabled" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (w *Webhook) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
