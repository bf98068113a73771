package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/internal/repo"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
)

// Repository defines persistence operations for orders, their lines, and the
// per-line deduction records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	CreateDeductions(ctx context.Context, deductions []models.OrderLineDeduction) error
	FindHydrated(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByDate(ctx context.Context, date string) ([]models.Order, error)
	ListByDateRange(ctx context.Context, from, to string) ([]models.Order, error)
	DeleteOrderLines(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	return r.DB(ctx).Create(line).Error
}

func (r *repository) CreateDeductions(ctx context.Context, deductions []models.OrderLineDeduction) error {
	if len(deductions) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&deductions).Error
}

func (r *repository) FindHydrated(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Lines.Deductions").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByDate(ctx context.Context, date string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Preload("Lines").
		Where("order_date = ?", date).
		Order("daily_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByDateRange(ctx context.Context, from, to string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Preload("Lines").
		Where("order_date >= ? AND order_date <= ?", from, to).
		Order("order_date ASC").
		Order("daily_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrderLines removes the order's lines and their deduction records.
// The schema cascades deductions with their line; the explicit delete keeps
// the behavior identical across drivers regardless of pragma state.
func (r *repository) DeleteOrderLines(ctx context.Context, orderID uuid.UUID) error {
	err := r.DB(ctx).Exec(`
		DELETE FROM order_line_deductions
		WHERE order_line_id IN (SELECT id FROM order_lines WHERE order_id = ?)
	`, orderID).Error
	if err != nil {
		return err
	}
	return r.DB(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderLine{}).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
