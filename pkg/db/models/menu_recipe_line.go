package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuRecipeLine maps a menu item to one ingredient it consumes per unit
// sold. At most one line exists per (menu item, stock item) pair.
type MenuRecipeLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MenuItemID      uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null;uniqueIndex:ux_recipe_menu_stock"`
	StockItemID     uuid.UUID       `gorm:"column:stock_item_id;type:uuid;not null;uniqueIndex:ux_recipe_menu_stock"`
	QuantityPerUnit decimal.Decimal `gorm:"column:quantity_per_unit;type:numeric(14,3);not null"`
	Unit            string          `gorm:"column:unit;not null;default:'unit'"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *MenuRecipeLine) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (MenuRecipeLine) TableName() string {
	return "menu_recipe_lines"
}
