package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is a sellable catalog entry. Catalog management is owned by the
// admin surface; the order engine only reads price and active flag.
type MenuItem struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name      string           `gorm:"column:name;not null;index"`
	Category  *string          `gorm:"column:category"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	Recipe    []MenuRecipeLine `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (MenuItem) TableName() string {
	return "menu_items"
}
