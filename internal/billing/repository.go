package billing

import (
	"context"
	"errors"
)

var ErrAccountNotFound = errors.New("billing account not found")

type AccountRepository interface {
	FindByUserID(ctx context.Context, userID string) (*Account, error)
	FindByCustomerID(ctx context.Context, customerID string) (*Account, error)
	SetCustomerID(ctx context.Context, userID, customerID string) error
	UpdateSubscription(ctx context.Context, userID string, u SubscriptionUpdate) error
}
