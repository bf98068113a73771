package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/internal/catalog"
	"github.com/jpalacios-dev/comanda-backend/internal/sequence"
	"github.com/jpalacios-dev/comanda-backend/internal/stock"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/events"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event events.DomainEvent) error
}

// Notifier wakes the outbox dispatcher after a commit.
type Notifier interface {
	Notify()
}

// Recorder receives order activity for observability.
type Recorder interface {
	OrderCreated()
	OrderCancelled()
	OrderUpdated()
	IngredientWarning()
}

type noopRecorder struct{}

func (noopRecorder) OrderCreated()      {}
func (noopRecorder) OrderCancelled()    {}
func (noopRecorder) OrderUpdated()      {}
func (noopRecorder) IngredientWarning() {}

// Service orchestrates order creation, edits, status transitions, and
// cancellation. Every mutating operation is one atomic unit of work: the
// daily number, the order row, its lines, the stock deductions, and the
// outbox event commit together or not at all.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateItems(ctx context.Context, orderID uuid.UUID, lines []LineInput) (*OrderResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByDate(ctx context.Context, date string) ([]models.Order, error)
	ListByDateRange(ctx context.Context, from, to string) ([]models.Order, error)
	Today(ctx context.Context) ([]models.Order, error)
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	tx       txRunner
	outbox   eventEmitter
	notifier Notifier
	metrics  Recorder
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the order engine dependencies.
type ServiceParams struct {
	Repo     Repository
	Catalog  catalog.Repository
	Tx       txRunner
	Outbox   eventEmitter
	Notifier Notifier
	Metrics  Recorder
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService builds the order engine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Metrics == nil {
		params.Metrics = noopRecorder{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order contains no lines")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}

	var (
		result   *models.Order
		warnings []IngredientWarning
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		date := s.now().Format(sequence.DateLayout)
		number, err := sequence.Next(ctx, tx, date)
		if err != nil {
			return err
		}

		order := &models.Order{
			DailyNumber:   number,
			OrderDate:     date,
			Type:          input.Type,
			TableNumber:   input.TableNumber,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			Status:        enums.OrderStatusPreparing,
			Subtotal:      decimal.Zero,
			Total:         decimal.Zero,
			Notes:         input.Notes,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		subtotal, lineWarnings, err := s.applyLines(ctx, tx, order, input.Lines)
		if err != nil {
			return err
		}
		warnings = lineWarnings

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"subtotal": subtotal,
			"total":    subtotal,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		if err := s.outbox.Emit(ctx, tx, events.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: events.OrderCreatedEvent{
				OrderID:     order.ID,
				DailyNumber: order.DailyNumber,
				OrderDate:   order.OrderDate,
				OrderType:   order.Type,
				Total:       subtotal,
				LineCount:   len(input.Lines),
			},
		}); err != nil {
			return err
		}

		result, err = repo.FindHydrated(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	s.wake()
	return &OrderResult{Order: result, Warnings: warnings}, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		result    *models.Order
		cancelled bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadHydrated(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			result = order
			return nil
		}

		restored := 0
		reason := fmt.Sprintf("cancel order #%d", order.DailyNumber)
		for _, line := range order.Lines {
			for _, deduction := range line.Deductions {
				if _, err := stock.Restore(ctx, tx, deduction.StockItemID, deduction.QuantityDeducted, reason); err != nil {
					return err
				}
				restored++
			}
		}

		completedAt := s.now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"completed_at": completedAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if err := s.outbox.Emit(ctx, tx, events.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: events.OrderCancelledEvent{
				OrderID:       order.ID,
				DailyNumber:   order.DailyNumber,
				OrderDate:     order.OrderDate,
				RestoredItems: restored,
			},
		}); err != nil {
			return err
		}

		cancelled = true
		result, err = repo.FindHydrated(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.metrics.OrderCancelled()
		s.wake()
	}
	return result, nil
}

// UpdateItems replaces the order's line set wholesale: every recorded
// deduction is restored with its exact original amount, the lines are
// deleted, and the new set is applied as if freshly created. Retracting and
// reapplying touches every ingredient twice but never needs to diff line
// sets, and a reapplication after intervening purchases prices against the
// current cost basis.
func (s *service) UpdateItems(ctx context.Context, orderID uuid.UUID, lines []LineInput) (*OrderResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order contains no lines")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}

	var (
		result   *models.Order
		warnings []IngredientWarning
		edited   bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadHydrated(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			result = order
			return nil
		}

		reason := fmt.Sprintf("edit order #%d", order.DailyNumber)
		for _, line := range order.Lines {
			for _, deduction := range line.Deductions {
				if _, err := stock.Restore(ctx, tx, deduction.StockItemID, deduction.QuantityDeducted, reason); err != nil {
					return err
				}
			}
		}

		if err := repo.DeleteOrderLines(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order lines")
		}

		subtotal, lineWarnings, err := s.applyLines(ctx, tx, order, lines)
		if err != nil {
			return err
		}
		warnings = lineWarnings

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"subtotal": subtotal,
			"total":    subtotal,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		if err := s.outbox.Emit(ctx, tx, events.DomainEvent{
			EventType:     enums.EventOrderUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: events.OrderUpdatedEvent{
				OrderID:     order.ID,
				DailyNumber: order.DailyNumber,
				OrderDate:   order.OrderDate,
				Total:       subtotal,
				LineCount:   len(lines),
			},
		}); err != nil {
			return err
		}

		edited = true
		result, err = repo.FindHydrated(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if edited {
		s.metrics.OrderUpdated()
		s.wake()
	}
	return &OrderResult{Order: result, Warnings: warnings}, nil
}

// UpdateStatus moves the order through the closed transition table.
// Transitions into cancelled go through Cancel so stock restoration is never
// skipped; completing stamps completedAt.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if status == enums.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadHydrated(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == status {
			result = order
			return nil
		}
		if !order.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
		}

		updates := map[string]any{"status": status}
		if status == enums.OrderStatusCompleted {
			updates["completed_at"] = s.now()
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		result, err = repo.FindHydrated(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.loadHydrated(ctx, s.repo, orderID)
}

func (s *service) ListByDate(ctx context.Context, date string) ([]models.Order, error) {
	if _, err := time.Parse(sequence.DateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	list, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListByDateRange(ctx context.Context, from, to string) ([]models.Order, error) {
	if _, err := time.Parse(sequence.DateLayout, from); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(sequence.DateLayout, to); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to date must be YYYY-MM-DD")
	}
	if from > to {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date is after to date")
	}
	list, err := s.repo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Today(ctx context.Context) ([]models.Order, error) {
	return s.ListByDate(ctx, s.now().Format(sequence.DateLayout))
}

// applyLines resolves, prices, persists, and deducts the given line set for
// the order. A missing menu item aborts the whole transaction; a missing
// stock item only skips that ingredient and surfaces a warning.
func (s *service) applyLines(ctx context.Context, tx *gorm.DB, order *models.Order, lines []LineInput) (decimal.Decimal, []IngredientWarning, error) {
	repo := s.repo.WithTx(tx)
	cat := s.catalog.WithTx(tx)

	subtotal := decimal.Zero
	var warnings []IngredientWarning
	reason := fmt.Sprintf("order #%d", order.DailyNumber)

	for _, input := range lines {
		item, err := cat.FindMenuItem(ctx, input.MenuItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("menu item %s not found", input.MenuItemID))
			}
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
		}

		unitPrice := item.Price
		if input.UnitPrice != nil {
			unitPrice = *input.UnitPrice
		}
		qty := decimal.NewFromInt(int64(input.Quantity))
		totalPrice := unitPrice.Mul(qty)

		line := &models.OrderLine{
			OrderID:        order.ID,
			MenuItemID:     item.ID,
			MenuItemName:   item.Name,
			Quantity:       input.Quantity,
			UnitPrice:      unitPrice,
			TotalPrice:     totalPrice,
			Notes:          input.Notes,
			AssignedWorker: input.AssignedWorker,
		}
		if err := repo.CreateOrderLine(ctx, line); err != nil {
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line")
		}
		subtotal = subtotal.Add(totalPrice)

		recipe, err := cat.FindRecipe(ctx, item.ID)
		if err != nil {
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
		}

		deductions := make([]models.OrderLineDeduction, 0, len(recipe))
		for _, ingredient := range recipe {
			amount := ingredient.QuantityPerUnit.Mul(qty)
			state, err := stock.Deduct(ctx, tx, ingredient.StockItemID, amount, reason)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					warnings = append(warnings, IngredientWarning{
						MenuItemID:  item.ID,
						StockItemID: ingredient.StockItemID,
						Reason:      "stock item missing, deduction skipped",
					})
					s.metrics.IngredientWarning()
					if s.logg != nil {
						fields := map[string]any{
							"menu_item_id":  item.ID.String(),
							"stock_item_id": ingredient.StockItemID.String(),
						}
						s.logg.Warn(s.logg.WithFields(ctx, fields), "recipe references missing stock item")
					}
					continue
				}
				return decimal.Zero, nil, err
			}
			deductions = append(deductions, models.OrderLineDeduction{
				OrderLineID:            line.ID,
				StockItemID:            state.StockItemID,
				QuantityDeducted:       state.Quantity,
				CostPerUnitAtDeduction: state.PricePerUnit,
			})

			crossed := state.NewQuantity.Cmp(state.AlertThreshold) <= 0 &&
				state.PreviousQuantity.Cmp(state.AlertThreshold) > 0
			if crossed {
				if err := s.outbox.Emit(ctx, tx, events.DomainEvent{
					EventType:     enums.EventStockLow,
					AggregateType: enums.AggregateStockItem,
					AggregateID:   state.StockItemID,
					Version:       1,
					Data: events.StockLowEvent{
						StockItemID:    state.StockItemID,
						Quantity:       state.NewQuantity,
						AlertThreshold: state.AlertThreshold,
					},
				}); err != nil {
					return decimal.Zero, nil, err
				}
			}
		}
		if err := repo.CreateDeductions(ctx, deductions); err != nil {
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deductions")
		}
	}

	return subtotal, warnings, nil
}

func (s *service) loadHydrated(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindHydrated(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) wake() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}
