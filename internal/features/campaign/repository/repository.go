package repository

import (
	"context"
	"errors"

	"campaign-bot-backend/internal/features/campaign/models"
)

var ErrItemNotFound = errors.New("campaign item not found")

// Repository stores campaign items. Ids are assigned by the store and
// are monotonically increasing per kind.
type Repository interface {
	// Create assigns the item's id and persists it.
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, kind models.ItemKind, id int64) (*models.Item, error)
	List(ctx context.Context, kind models.ItemKind) ([]*models.Item, error)
}
