package restaurant

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("restaurant not found")
	ErrSlugTaken = errors.New("slug already taken")
)

type Repository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)

	// CreateWithMenu stores the restaurant together with its first menu.
	// Either everything is written or nothing is.
	CreateWithMenu(ctx context.Context, r *Restaurant, m *Menu) error

	ListByOwner(ctx context.Context, ownerID string) ([]*Restaurant, error)
	GetBySlug(ctx context.Context, slug string) (*Restaurant, error)
	GetActiveMenu(ctx context.Context, restaurantID string) (*Menu, error)
}
