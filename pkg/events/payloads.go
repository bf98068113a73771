package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

// OrderCreatedEvent feeds the kitchen ticket printer and any notifier.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	DailyNumber int             `json:"daily_number"`
	OrderDate   string          `json:"order_date"`
	OrderType   enums.OrderType `json:"order_type"`
	Total       decimal.Decimal `json:"total"`
	LineCount   int             `json:"line_count"`
}

// OrderCancelledEvent is emitted after stock restoration committed.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	DailyNumber   int       `json:"daily_number"`
	OrderDate     string    `json:"order_date"`
	RestoredItems int       `json:"restored_items"`
}

// StockLowEvent is emitted when a deduction drops an item to or below its
// alert threshold. Emitted only on the crossing, not on every deduction
// while the item stays low.
type StockLowEvent struct {
	StockItemID    uuid.UUID       `json:"stock_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// OrderUpdatedEvent is emitted after an item edit committed.
type OrderUpdatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	DailyNumber int             `json:"daily_number"`
	OrderDate   string          `json:"order_date"`
	Total       decimal.Decimal `json:"total"`
	LineCount   int             `json:"line_count"`
}
