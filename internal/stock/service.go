package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the inventory ledger. Every mutating operation runs as one
// atomic unit of work and appends exactly one audit entry (purchases and
// shrinking fixes additionally append a purchase record).
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.StockItem, error)
	DeactivateItem(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	List(ctx context.Context, includeInactive bool) ([]models.StockItem, error)
	LowStock(ctx context.Context) ([]models.StockItem, error)
	LowStockCount(ctx context.Context) (int64, error)
	LedgerEntries(ctx context.Context, id uuid.UUID) ([]models.StockLedgerEntry, error)
	PurchaseRecords(ctx context.Context, id uuid.UUID) ([]models.StockPurchaseRecord, error)
	Deduct(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error)
	Restore(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error)
	Purchase(ctx context.Context, id uuid.UUID, quantity, pricePerUnit decimal.Decimal) (*models.StockItem, error)
	Adjust(ctx context.Context, id uuid.UUID, newQuantity decimal.Decimal, reason string) (*models.StockItem, error)
	Fix(ctx context.Context, id uuid.UUID, newQuantity decimal.Decimal, reason string) (*models.StockItem, error)
}

// CreateItemInput captures the fields needed to register a stock item.
type CreateItemInput struct {
	Name           string
	ShortName      *string
	Unit           string
	Quantity       decimal.Decimal
	PricePerUnit   decimal.Decimal
	AlertThreshold decimal.Decimal
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics Recorder
}

// Recorder receives ledger activity for observability. A nil-safe no-op
// implementation is acceptable.
type Recorder interface {
	LedgerEntry(kind enums.LedgerEntryKind)
	SetLowStockCount(count int64)
}

type noopRecorder struct{}

func (noopRecorder) LedgerEntry(enums.LedgerEntryKind) {}
func (noopRecorder) SetLowStockCount(int64)            {}

// NewService builds the inventory ledger service.
func NewService(repo Repository, tx txRunner, metrics Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &service{repo: repo, tx: tx, metrics: metrics}, nil
}

// CreateItem registers a stock item. A non-zero starting quantity is written
// through the ledger as an opening adjustment so that replaying all entries
// from zero still reproduces the current balance.
func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.StockItem, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item name required")
	}
	if input.Unit == "" {
		input.Unit = "unit"
	}
	item := &models.StockItem{
		Name:           input.Name,
		ShortName:      input.ShortName,
		Unit:           input.Unit,
		Quantity:       input.Quantity,
		PricePerUnit:   input.PricePerUnit,
		AlertThreshold: input.AlertThreshold,
		IsActive:       true,
	}
	seeded := !input.Quantity.IsZero()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock item")
		}
		if !seeded {
			return nil
		}
		reason := "initial stock"
		entry := &models.StockLedgerEntry{
			StockItemID:      item.ID,
			Kind:             enums.LedgerEntryManualAdjust,
			QuantityChange:   input.Quantity,
			PreviousQuantity: decimal.Zero,
			NewQuantity:      input.Quantity,
			AffectsCost:      false,
			Reason:           &reason,
		}
		if err := repo.AppendLedgerEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if seeded {
		s.metrics.LedgerEntry(enums.LedgerEntryManualAdjust)
	}
	return item, nil
}

func (s *service) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.loadItem(ctx, s.repo, id)
	if err != nil {
		return err
	}
	item.IsActive = false
	if err := s.repo.Save(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate stock item")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	return s.loadItem(ctx, s.repo, id)
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.StockItem, error) {
	items, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock items")
	}
	return items, nil
}

func (s *service) LowStock(ctx context.Context) ([]models.StockItem, error) {
	items, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return items, nil
}

func (s *service) LowStockCount(ctx context.Context) (int64, error) {
	count, err := s.repo.CountLowStock(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count low stock")
	}
	s.metrics.SetLowStockCount(count)
	return count, nil
}

func (s *service) LedgerEntries(ctx context.Context, id uuid.UUID) ([]models.StockLedgerEntry, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item id required")
	}
	entries, err := s.repo.ListLedgerEntries(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) PurchaseRecords(ctx context.Context, id uuid.UUID) ([]models.StockPurchaseRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item id required")
	}
	records, err := s.repo.ListPurchaseRecords(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase records")
	}
	return records, nil
}

func (s *service) Deduct(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error) {
	if amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deduct amount must be positive")
	}
	var state *DeductionState
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		state, terr = Deduct(ctx, tx, id, amount, reason)
		return terr
	})
	if err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(enums.LedgerEntryOrderDeduction)
	return state, nil
}

func (s *service) Restore(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string) (*DeductionState, error) {
	if amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restore amount must be positive")
	}
	var state *DeductionState
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		state, terr = Restore(ctx, tx, id, amount, reason)
		return terr
	})
	if err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(enums.LedgerEntryOrderDeduction)
	return state, nil
}

// Purchase increases stock and recomputes the moving weighted-average cost:
// newPrice = (oldQty*oldPrice + qty*price) / (oldQty+qty). When the
// resulting quantity is zero or negative the incoming price is taken as-is.
func (s *service) Purchase(ctx context.Context, id uuid.UUID, quantity, pricePerUnit decimal.Decimal) (*models.StockItem, error) {
	if quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase quantity must be positive")
	}
	if pricePerUnit.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase price must not be negative")
	}

	var updated *models.StockItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.loadItem(ctx, repo, id)
		if err != nil {
			return err
		}

		oldQty := item.Quantity
		oldPrice := item.PricePerUnit
		newQty := oldQty.Add(quantity)

		newPrice := pricePerUnit
		if newQty.Sign() > 0 {
			existingValue := oldQty.Mul(oldPrice)
			lotValue := quantity.Mul(pricePerUnit)
			newPrice = existingValue.Add(lotValue).DivRound(newQty, 4)
		}

		item.Quantity = newQty
		item.PricePerUnit = newPrice
		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save stock item")
		}

		entry := &models.StockLedgerEntry{
			StockItemID:      item.ID,
			Kind:             enums.LedgerEntryPurchase,
			QuantityChange:   quantity,
			PreviousQuantity: oldQty,
			NewQuantity:      newQty,
			AffectsCost:      true,
		}
		if err := repo.AppendLedgerEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		record := &models.StockPurchaseRecord{
			StockItemID:  item.ID,
			Quantity:     quantity,
			PricePerUnit: pricePerUnit,
			TotalCost:    quantity.Mul(pricePerUnit),
		}
		if err := repo.AppendPurchaseRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append purchase record")
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(enums.LedgerEntryPurchase)
	return updated, nil
}

// Adjust sets the quantity directly for waste or consumption corrections.
// Cost basis is untouched.
func (s *service) Adjust(ctx context.Context, id uuid.UUID, newQuantity decimal.Decimal, reason string) (*models.StockItem, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason required")
	}

	var updated *models.StockItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.loadItem(ctx, repo, id)
		if err != nil {
			return err
		}

		oldQty := item.Quantity
		item.Quantity = newQuantity
		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save stock item")
		}

		entry := &models.StockLedgerEntry{
			StockItemID:      item.ID,
			Kind:             enums.LedgerEntryManualAdjust,
			QuantityChange:   newQuantity.Sub(oldQty),
			PreviousQuantity: oldQty,
			NewQuantity:      newQuantity,
			AffectsCost:      false,
			Reason:           &reason,
		}
		if err := repo.AppendLedgerEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(enums.LedgerEntryManualAdjust)
	return updated, nil
}

// Fix corrects a previously wrong manual entry. Unlike Purchase it never
// re-averages the price per unit: a shrinking fix instead appends a negative
// purchase record so the valuation history reflects the correction while the
// unit cost stays put.
func (s *service) Fix(ctx context.Context, id uuid.UUID, newQuantity decimal.Decimal, reason string) (*models.StockItem, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fix reason required")
	}

	var updated *models.StockItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.loadItem(ctx, repo, id)
		if err != nil {
			return err
		}

		oldQty := item.Quantity
		diff := newQuantity.Sub(oldQty)

		item.Quantity = newQuantity
		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save stock item")
		}

		entry := &models.StockLedgerEntry{
			StockItemID:      item.ID,
			Kind:             enums.LedgerEntryQuantityFix,
			QuantityChange:   diff,
			PreviousQuantity: oldQty,
			NewQuantity:      newQuantity,
			AffectsCost:      true,
			Reason:           &reason,
		}
		if err := repo.AppendLedgerEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		if diff.Sign() < 0 {
			record := &models.StockPurchaseRecord{
				StockItemID:  item.ID,
				Quantity:     diff,
				PricePerUnit: item.PricePerUnit,
				TotalCost:    diff.Mul(item.PricePerUnit),
			}
			if err := repo.AppendPurchaseRecord(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append purchase record")
			}
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(enums.LedgerEntryQuantityFix)
	return updated, nil
}

func (s *service) loadItem(ctx context.Context, repo Repository, id uuid.UUID) (*models.StockItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock item id required")
	}
	item, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock item")
	}
	return item, nil
}
