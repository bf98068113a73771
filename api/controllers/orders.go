package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpalacios-dev/comanda-backend/api/responses"
	"github.com/jpalacios-dev/comanda-backend/api/validators"
	"github.com/jpalacios-dev/comanda-backend/internal/orders"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

// CreateOrder handles submission of a new order from a terminal.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResultResponse(result))
	}
}

// CancelOrder cancels an order and restores its recorded stock deductions.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// UpdateOrderItems replaces the order's line set.
func UpdateOrderItems(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateItems(r.Context(), orderID, payload.toInputs())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResultResponse(result))
	}
}

// UpdateOrderStatus moves the order through the allowed status transitions.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, parseErr := enums.ParseOrderStatus(payload.Status)
		if parseErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// GetOrder returns one order with its lines and deductions.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListOrders lists orders for a day or a date range. With no query
// parameters it returns today's orders.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		query := r.URL.Query()
		date := query.Get("date")
		from := query.Get("from")
		to := query.Get("to")

		var (
			list []models.Order
			err  error
		)
		switch {
		case date != "":
			list, err = svc.ListByDate(r.Context(), date)
		case from != "" || to != "":
			list, err = svc.ListByDateRange(r.Context(), from, to)
		default:
			list, err = svc.Today(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list))
		for i := range list {
			items = append(items, newOrderResponse(&list[i]))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: items})
	}
}

func orderIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return id, nil
}

type orderLineRequest struct {
	MenuItemID     uuid.UUID        `json:"menu_item_id" validate:"required"`
	Quantity       int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	AssignedWorker *string          `json:"assigned_worker,omitempty"`
}

type createOrderRequest struct {
	Type          string             `json:"type" validate:"required,oneof=dine_in takeout delivery"`
	TableNumber   *string            `json:"table_number,omitempty"`
	CustomerName  *string            `json:"customer_name,omitempty"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Lines         []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateItemsRequest struct {
	Lines []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (req createOrderRequest) toInput() orders.CreateOrderInput {
	orderType, _ := enums.ParseOrderType(req.Type)
	return orders.CreateOrderInput{
		Type:          orderType,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Lines:         toLineInputs(req.Lines),
	}
}

func (req updateItemsRequest) toInputs() []orders.LineInput {
	return toLineInputs(req.Lines)
}

func toLineInputs(lines []orderLineRequest) []orders.LineInput {
	inputs := make([]orders.LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, orders.LineInput{
			MenuItemID:     line.MenuItemID,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Notes:          line.Notes,
			AssignedWorker: line.AssignedWorker,
		})
	}
	return inputs
}

type orderResponse struct {
	OrderID       uuid.UUID           `json:"order_id"`
	DailyNumber   int                 `json:"daily_number"`
	OrderDate     string              `json:"order_date"`
	Type          string              `json:"type"`
	Status        string              `json:"status"`
	TableNumber   *string             `json:"table_number,omitempty"`
	CustomerName  *string             `json:"customer_name,omitempty"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	Notes         *string             `json:"notes,omitempty"`
	Lines         []orderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

type orderLineResponse struct {
	LineID         uuid.UUID           `json:"line_id"`
	MenuItemID     uuid.UUID           `json:"menu_item_id"`
	MenuItemName   string              `json:"menu_item_name"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	Notes          *string             `json:"notes,omitempty"`
	AssignedWorker *string             `json:"assigned_worker,omitempty"`
	Deductions     []deductionResponse `json:"deductions,omitempty"`
}

type deductionResponse struct {
	StockItemID      uuid.UUID       `json:"stock_item_id"`
	QuantityDeducted decimal.Decimal `json:"quantity_deducted"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
}

type orderWarningResponse struct {
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Reason      string    `json:"reason"`
}

type orderResultResponse struct {
	Order    orderResponse          `json:"order"`
	Warnings []orderWarningResponse `json:"warnings,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

func newOrderResultResponse(result *orders.OrderResult) orderResultResponse {
	if result == nil {
		return orderResultResponse{}
	}
	warnings := make([]orderWarningResponse, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		warnings = append(warnings, orderWarningResponse{
			MenuItemID:  warning.MenuItemID,
			StockItemID: warning.StockItemID,
			Reason:      warning.Reason,
		})
	}
	return orderResultResponse{
		Order:    newOrderResponse(result.Order),
		Warnings: warnings,
	}
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		deductions := make([]deductionResponse, 0, len(line.Deductions))
		for _, deduction := range line.Deductions {
			deductions = append(deductions, deductionResponse{
				StockItemID:      deduction.StockItemID,
				QuantityDeducted: deduction.QuantityDeducted,
				CostPerUnit:      deduction.CostPerUnitAtDeduction,
			})
		}
		lines = append(lines, orderLineResponse{
			LineID:         line.ID,
			MenuItemID:     line.MenuItemID,
			MenuItemName:   line.MenuItemName,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalPrice:     line.TotalPrice,
			Notes:          line.Notes,
			AssignedWorker: line.AssignedWorker,
			Deductions:     deductions,
		})
	}
	return orderResponse{
		OrderID:       order.ID,
		DailyNumber:   order.DailyNumber,
		OrderDate:     order.OrderDate,
		Type:          string(order.Type),
		Status:        string(order.Status),
		TableNumber:   order.TableNumber,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Subtotal:      order.Subtotal,
		Total:         order.Total,
		Notes:         order.Notes,
		Lines:         lines,
		CreatedAt:     order.CreatedAt,
		CompletedAt:   order.CompletedAt,
	}
}
