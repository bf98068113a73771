package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLine snapshots one menu selection. UnitPrice is captured at
// create/edit time and never re-read from the catalog afterwards.
type OrderLine struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID            `gorm:"column:menu_item_id;type:uuid;not null"`
	MenuItemName   string               `gorm:"column:menu_item_name;not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice     decimal.Decimal      `gorm:"column:total_price;type:numeric(14,2);not null"`
	Notes          *string              `gorm:"column:notes"`
	AssignedWorker *string              `gorm:"column:assigned_worker"`
	Deductions     []OrderLineDeduction `gorm:"foreignKey:OrderLineID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (OrderLine) TableName() string {
	return "order_lines"
}
