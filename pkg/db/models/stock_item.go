package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockItem is a tracked raw material with a running quantity and a moving
// weighted-average cost. Quantity is allowed to go negative: overselling is
// surfaced through the low-stock report, never blocked at deduction time.
type StockItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name           string          `gorm:"column:name;not null;index"`
	ShortName      *string         `gorm:"column:short_name"`
	Unit           string          `gorm:"column:unit;not null;default:'unit'"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	PricePerUnit   decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,4);not null"`
	AlertThreshold decimal.Decimal `gorm:"column:alert_threshold;type:numeric(14,3);not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (StockItem) TableName() string {
	return "stock_items"
}
