package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockPurchaseRecord captures one purchased lot for valuation history.
// A quantity fix that shrinks stock appends a record with negative quantity
// and cost so total valuation stays reconciled without re-averaging the
// item's price per unit.
type StockPurchaseRecord struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StockItemID  uuid.UUID       `gorm:"column:stock_item_id;type:uuid;not null;index"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,4);not null"`
	TotalCost    decimal.Decimal `gorm:"column:total_cost;type:numeric(14,4);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *StockPurchaseRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (StockPurchaseRecord) TableName() string {
	return "stock_purchase_records"
}
