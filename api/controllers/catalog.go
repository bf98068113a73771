package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpalacios-dev/comanda-backend/api/responses"
	"github.com/jpalacios-dev/comanda-backend/internal/catalog"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

// ListMenuItems lists the active menu for terminal display.
func ListMenuItems(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		items, err := svc.ListMenuItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]menuItemResponse, 0, len(items))
		for i := range items {
			out = append(out, newMenuItemResponse(&items[i]))
		}
		responses.WriteSuccess(w, menuListResponse{Items: out})
	}
}

// GetMenuItem returns one menu item with its recipe.
func GetMenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		raw := chi.URLParam(r, "id")
		id, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu item id"))
			return
		}

		item, err := svc.GetMenuItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMenuItemResponse(item))
	}
}

type menuItemResponse struct {
	MenuItemID uuid.UUID            `json:"menu_item_id"`
	Name       string               `json:"name"`
	Category   *string              `json:"category,omitempty"`
	Price      decimal.Decimal      `json:"price"`
	IsActive   bool                 `json:"is_active"`
	Recipe     []recipeLineResponse `json:"recipe,omitempty"`
}

type recipeLineResponse struct {
	StockItemID     uuid.UUID       `json:"stock_item_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

type menuListResponse struct {
	Items []menuItemResponse `json:"items"`
}

func newMenuItemResponse(item *models.MenuItem) menuItemResponse {
	if item == nil {
		return menuItemResponse{}
	}
	recipe := make([]recipeLineResponse, 0, len(item.Recipe))
	for _, line := range item.Recipe {
		recipe = append(recipe, recipeLineResponse{
			StockItemID:     line.StockItemID,
			QuantityPerUnit: line.QuantityPerUnit,
		})
	}
	return menuItemResponse{
		MenuItemID: item.ID,
		Name:       item.Name,
		Category:   item.Category,
		Price:      item.Price,
		IsActive:   item.IsActive,
		Recipe:     recipe,
	}
}
