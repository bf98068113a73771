package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpalacios-dev/comanda-backend/api/responses"
	"github.com/jpalacios-dev/comanda-backend/api/validators"
	"github.com/jpalacios-dev/comanda-backend/internal/stock"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

// CreateStockItem registers a new tracked ingredient.
func CreateStockItem(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var payload createStockItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), stock.CreateItemInput{
			Name:           payload.Name,
			ShortName:      payload.ShortName,
			Unit:           payload.Unit,
			Quantity:       payload.Quantity,
			PricePerUnit:   payload.PricePerUnit,
			AlertThreshold: payload.AlertThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newStockItemResponse(item))
	}
}

// ListStockItems lists active stock items; ?all=true includes inactive ones.
func ListStockItems(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		includeInactive := r.URL.Query().Get("all") == "true"
		items, err := svc.List(r.Context(), includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStockListResponse(items))
	}
}

// LowStock lists active items at or below their alert threshold.
func LowStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		items, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// keeps the gauge fresh without a separate poller
		if _, err := svc.LowStockCount(r.Context()); err != nil && logg != nil {
			logg.Warn(r.Context(), "refresh low stock count failed")
		}

		responses.WriteSuccess(w, newStockListResponse(items))
	}
}

// GetStockItem returns one stock item.
func GetStockItem(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStockItemResponse(item))
	}
}

// DeactivateStockItem retires an item from the active list. History stays.
func DeactivateStockItem(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateItem(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// PurchaseStock records an incoming lot and moves the weighted-average cost.
func PurchaseStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload purchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Purchase(r.Context(), id, payload.Quantity, payload.PricePerUnit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStockItemResponse(item))
	}
}

// AdjustStock sets the quantity directly without touching the cost basis.
func AdjustStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quantityFixRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Adjust(r.Context(), id, payload.NewQuantity, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStockItemResponse(item))
	}
}

// FixStock corrects a wrong manual entry, compensating the purchase history
// when the correction shrinks the quantity.
func FixStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quantityFixRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Fix(r.Context(), id, payload.NewQuantity, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStockItemResponse(item))
	}
}

// StockLedger returns the audit trail for one item, newest first.
func StockLedger(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.LedgerEntries(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]ledgerEntryResponse, 0, len(entries))
		for _, entry := range entries {
			items = append(items, newLedgerEntryResponse(entry))
		}
		responses.WriteSuccess(w, ledgerResponse{Entries: items})
	}
}

// StockPurchases returns the purchase history for one item, newest first.
func StockPurchases(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		id, err := stockItemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.PurchaseRecords(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]purchaseRecordResponse, 0, len(records))
		for _, record := range records {
			items = append(items, purchaseRecordResponse{
				RecordID:     record.ID,
				Quantity:     record.Quantity,
				PricePerUnit: record.PricePerUnit,
				TotalCost:    record.TotalCost,
				CreatedAt:    record.CreatedAt,
			})
		}
		responses.WriteSuccess(w, purchaseHistoryResponse{Purchases: items})
	}
}

func stockItemIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock item id")
	}
	return id, nil
}

type createStockItemRequest struct {
	Name           string          `json:"name" validate:"required"`
	ShortName      *string         `json:"short_name,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

type purchaseRequest struct {
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" validate:"required"`
}

type quantityFixRequest struct {
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason" validate:"required"`
}

type stockItemResponse struct {
	StockItemID    uuid.UUID       `json:"stock_item_id"`
	Name           string          `json:"name"`
	ShortName      *string         `json:"short_name,omitempty"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	IsActive       bool            `json:"is_active"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type stockListResponse struct {
	Items []stockItemResponse `json:"items"`
}

type ledgerEntryResponse struct {
	EntryID          uuid.UUID       `json:"entry_id"`
	Kind             string          `json:"kind"`
	QuantityChange   decimal.Decimal `json:"quantity_change"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	AffectsCost      bool            `json:"affects_cost"`
	Reason           *string         `json:"reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type ledgerResponse struct {
	Entries []ledgerEntryResponse `json:"entries"`
}

type purchaseRecordResponse struct {
	RecordID     uuid.UUID       `json:"record_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	CreatedAt    time.Time       `json:"created_at"`
}

type purchaseHistoryResponse struct {
	Purchases []purchaseRecordResponse `json:"purchases"`
}

func newStockItemResponse(item *models.StockItem) stockItemResponse {
	if item == nil {
		return stockItemResponse{}
	}
	return stockItemResponse{
		StockItemID:    item.ID,
		Name:           item.Name,
		ShortName:      item.ShortName,
		Unit:           item.Unit,
		Quantity:       item.Quantity,
		PricePerUnit:   item.PricePerUnit,
		AlertThreshold: item.AlertThreshold,
		IsActive:       item.IsActive,
		UpdatedAt:      item.UpdatedAt,
	}
}

func newStockListResponse(items []models.StockItem) stockListResponse {
	out := make([]stockItemResponse, 0, len(items))
	for i := range items {
		out = append(out, newStockItemResponse(&items[i]))
	}
	return stockListResponse{Items: out}
}

func newLedgerEntryResponse(entry models.StockLedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		EntryID:          entry.ID,
		Kind:             string(entry.Kind),
		QuantityChange:   entry.QuantityChange,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
		AffectsCost:      entry.AffectsCost,
		Reason:           entry.Reason,
		CreatedAt:        entry.CreatedAt,
	}
}
