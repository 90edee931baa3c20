package billing

import (
	"context"
	"sync"
)

type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

func NewInMemoryAccountRepository(accounts ...Account) *InMemoryAccountRepository {
	r := &InMemoryAccountRepository{accounts: make(map[string]*Account)}
	for _, a := range accounts {
		a := a
		r.accounts[a.UserID] = &a
	}
	return r
}

func (r *InMemoryAccountRepository) FindByUserID(_ context.Context, userID string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (r *InMemoryAccountRepository) FindByCustomerID(_ context.Context, customerID string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.StripeCustomerID == customerID {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (r *InMemoryAccountRepository) SetCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return ErrAccountNotFound
	}
	a.StripeCustomerID = customerID
	return nil
}

func (r *InMemoryAccountRepository) UpdateSubscription(_ context.Context, userID string, u SubscriptionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return ErrAccountNotFound
	}
	a.StripeSubscriptionID = u.ID
	a.SubscriptionStatus = u.Status
	a.Plan = u.Plan
	a.CancelAtPeriodEnd = u.CancelAtPeriodEnd
	if !u.CurrentPeriodEnd.IsZero() {
		end := u.CurrentPeriodEnd
		a.CurrentPeriodEnd = &end
	}
	return nil
}
