package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

// LineInput is one requested menu selection. UnitPrice overrides the catalog
// price when set; otherwise the price is read from the catalog at
// create/edit time and snapshotted on the line.
type LineInput struct {
	MenuItemID     uuid.UUID
	Quantity       int
	UnitPrice      *decimal.Decimal
	Notes          *string
	AssignedWorker *string
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	Type          enums.OrderType
	Lines         []LineInput
	TableNumber   *string
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
}

// IngredientWarning flags a recipe line whose stock item no longer exists.
// The deduction is skipped, the order still commits, and the caller decides
// whether to chase the data defect.
type IngredientWarning struct {
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Reason      string    `json:"reason"`
}

// OrderResult pairs the committed order with any non-fatal warnings raised
// while deducting its ingredients.
type OrderResult struct {
	Order    *models.Order       `json:"order"`
	Warnings []IngredientWarning `json:"warnings,omitempty"`
}
