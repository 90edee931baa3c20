package onboarding

import "context"

// Repository persists session snapshots.
// Service depends ONLY on this interface.
type Repository interface {
	Create(ctx context.Context, s State) error
	Get(ctx context.Context, id string) (State, error)
	Update(ctx context.Context, s State) error
	FindOpenByUser(ctx context.Context, userID string) (State, error)
}
