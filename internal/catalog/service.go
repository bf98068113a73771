package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
)

// Service resolves menu items and their recipes for callers outside the
// order engine (the engine goes through Repository.WithTx directly).
type Service interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	GetIngredients(ctx context.Context, menuItemID uuid.UUID) ([]models.MenuRecipeLine, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	item, err := s.repo.FindMenuItem(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

func (s *service) GetIngredients(ctx context.Context, menuItemID uuid.UUID) ([]models.MenuRecipeLine, error) {
	if menuItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	lines, err := s.repo.FindRecipe(ctx, menuItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
	}
	return lines, nil
}

func (s *service) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	return items, nil
}
