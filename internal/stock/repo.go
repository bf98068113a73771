package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/internal/repo"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
)

// Repository manages persistence for stock items and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.StockItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	List(ctx context.Context, includeInactive bool) ([]models.StockItem, error)
	ListLowStock(ctx context.Context) ([]models.StockItem, error)
	CountLowStock(ctx context.Context) (int64, error)
	Save(ctx context.Context, item *models.StockItem) error
	AppendLedgerEntry(ctx context.Context, entry *models.StockLedgerEntry) error
	AppendPurchaseRecord(ctx context.Context, record *models.StockPurchaseRecord) error
	ListLedgerEntries(ctx context.Context, stockItemID uuid.UUID) ([]models.StockLedgerEntry, error)
	ListPurchaseRecords(ctx context.Context, stockItemID uuid.UUID) ([]models.StockPurchaseRecord, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.StockItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	err := r.DB(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, includeInactive bool) ([]models.StockItem, error) {
	q := r.DB(ctx).Order("name ASC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var items []models.StockItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.StockItem, error) {
	var items []models.StockItem
	err := r.DB(ctx).
		Where("is_active = ? AND quantity <= alert_threshold", true).
		Order("quantity ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.StockItem{}).
		Where("is_active = ? AND quantity <= alert_threshold", true).
		Count(&count).Error
	return count, err
}

func (r *repository) Save(ctx context.Context, item *models.StockItem) error {
	return r.DB(ctx).Save(item).Error
}

func (r *repository) AppendLedgerEntry(ctx context.Context, entry *models.StockLedgerEntry) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) AppendPurchaseRecord(ctx context.Context, record *models.StockPurchaseRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) ListLedgerEntries(ctx context.Context, stockItemID uuid.UUID) ([]models.StockLedgerEntry, error) {
	var entries []models.StockLedgerEntry
	err := r.DB(ctx).
		Where("stock_item_id = ?", stockItemID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPurchaseRecords(ctx context.Context, stockItemID uuid.UUID) ([]models.StockPurchaseRecord, error) {
	var records []models.StockPurchaseRecord
	err := r.DB(ctx).
		Where("stock_item_id = ?", stockItemID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
