package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
)

// DeductionState reports the exact effect of one deduct or restore, including
// the price per unit at the moment it happened. The order engine persists
// these values verbatim so a later reversal never has to recompute anything.
type DeductionState struct {
	StockItemID      uuid.UUID
	Quantity         decimal.Decimal
	PricePerUnit     decimal.Decimal
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	AlertThreshold   decimal.Decimal
}

// Deduct subtracts amount from the stock item inside the caller's
// transaction and appends the audit entry. It never rejects on insufficient
// stock; the quantity may go negative and is surfaced by the low-stock
// report. The quantity change is applied with a single UPDATE so concurrent
// orders consuming the same ingredient serialize on the row.
func Deduct(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error) {
	return applyChange(ctx, tx, itemID, amount.Neg(), reason)
}

// Restore adds amount back to the stock item inside the caller's
// transaction. Used only by cancellation and edit reversal with the exact
// amounts previously recorded.
func Restore(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error) {
	return applyChange(ctx, tx, itemID, amount, reason)
}

func applyChange(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, change decimal.Decimal, reason string) (*DeductionState, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock change")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item id required")
	}
	if change.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock change must be non-zero")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE stock_items
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, change, itemID)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update stock quantity")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock item not found")
	}

	var item models.StockItem
	if err := tx.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock item")
	}

	previous := item.Quantity.Sub(change)
	entry := models.StockLedgerEntry{
		StockItemID:      itemID,
		Kind:             enums.LedgerEntryOrderDeduction,
		QuantityChange:   change,
		PreviousQuantity: previous,
		NewQuantity:      item.Quantity,
		AffectsCost:      false,
	}
	if reason != "" {
		entry.Reason = &reason
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	return &DeductionState{
		StockItemID:      itemID,
		Quantity:         change.Abs(),
		PricePerUnit:     item.PricePerUnit,
		PreviousQuantity: previous,
		NewQuantity:      item.Quantity,
		AlertThreshold:   item.AlertThreshold,
	}, nil
}
