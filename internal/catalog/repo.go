package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/internal/repo"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
)

// Repository exposes the read-only catalog contract the order engine
// consumes. WithTx rebinds it to the engine's transaction so menu and recipe
// reads observe the same snapshot as the mutation they feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	FindRecipe(ctx context.Context, menuItemID uuid.UUID) ([]models.MenuRecipeLine, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.DB(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindRecipe(ctx context.Context, menuItemID uuid.UUID) ([]models.MenuRecipeLine, error) {
	var lines []models.MenuRecipeLine
	err := r.DB(ctx).
		Where("menu_item_id = ?", menuItemID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
