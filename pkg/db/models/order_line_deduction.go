package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineDeduction records the exact stock consumed by one order line for
// one ingredient. Cancellation and edits restore these recorded amounts,
// never a recomputation, so reversal stays exact even after the recipe or
// price changed. Rows cascade away with their parent line.
type OrderLineDeduction struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderLineID            uuid.UUID       `gorm:"column:order_line_id;type:uuid;not null;index"`
	StockItemID            uuid.UUID       `gorm:"column:stock_item_id;type:uuid;not null;index"`
	QuantityDeducted       decimal.Decimal `gorm:"column:quantity_deducted;type:numeric(14,3);not null"`
	CostPerUnitAtDeduction decimal.Decimal `gorm:"column:cost_per_unit_at_deduction;type:numeric(12,4);not null"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *OrderLineDeduction) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (OrderLineDeduction) TableName() string {
	return "order_line_deductions"
}
