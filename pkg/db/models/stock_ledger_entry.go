package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

// StockLedgerEntry is an append-only audit row recording one quantity change.
// Replaying all entries for a stock item in creation order from quantity zero
// reproduces the item's current quantity.
type StockLedgerEntry struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StockItemID      uuid.UUID             `gorm:"column:stock_item_id;type:uuid;not null;index"`
	Kind             enums.LedgerEntryKind `gorm:"column:kind;not null"`
	QuantityChange   decimal.Decimal       `gorm:"column:quantity_change;type:numeric(14,3);not null"`
	PreviousQuantity decimal.Decimal       `gorm:"column:previous_quantity;type:numeric(14,3);not null"`
	NewQuantity      decimal.Decimal       `gorm:"column:new_quantity;type:numeric(14,3);not null"`
	AffectsCost      bool                  `gorm:"column:affects_cost;not null;default:false"`
	Reason           *string               `gorm:"column:reason"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *StockLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}
