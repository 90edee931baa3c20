package billing

import (
	"context"
	"errors"
	"log"
	"strings"
)

var (
	ErrNoCustomer = errors.New("no stripe customer for this account")
	ErrEmptyEvent = errors.New("webhook event without payload")
)

type Service struct {
	repo     AccountRepository
	provider PaymentProvider
	prices   PriceIDs
	appURL   string
}

func NewService(repo AccountRepository, provider PaymentProvider, prices PriceIDs, appURL string) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		prices:   prices,
		appURL:   strings.TrimRight(appURL, "/"),
	}
}

// --------------------------------------------------
// Checkout: get-or-create customer, then a subscription session
// --------------------------------------------------
func (s *Service) Checkout(ctx context.Context, userID string, plan Plan, period Period) (CheckoutSession, error) {
	priceID, err := s.prices.Lookup(plan, period)
	if err != nil {
		return CheckoutSession{}, err
	}

	acc, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return CheckoutSession{}, err
	}

	customerID := acc.StripeCustomerID
	if customerID == "" {
		name := acc.Name
		if name == "" {
			name = acc.Email
		}
		customerID, err = s.provider.CreateCustomer(ctx, acc.Email, name, acc.UserID)
		if err != nil {
			return CheckoutSession{}, err
		}
		if err := s.repo.SetCustomerID(ctx, userID, customerID); err != nil {
			return CheckoutSession{}, err
		}
		log.Printf("STRIPE_CUSTOMER_CREATED user=%s customer=%s", userID, customerID)
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		Plan:       plan,
		Period:     period,
		SuccessURL: s.appURL + "/dashboard/billing?success=true",
		CancelURL:  s.appURL + "/pricing?canceled=true",
	})
}

func (s *Service) Portal(ctx context.Context, userID, returnURL string) (string, error) {
	acc, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if acc.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}
	if returnURL == "" {
		returnURL = s.appURL + "/dashboard/billing"
	}
	return s.provider.CreatePortalSession(ctx, acc.StripeCustomerID, returnURL)
}

func (s *Service) Account(ctx context.Context, userID string) (*Account, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// --------------------------------------------------
// Webhooks
// --------------------------------------------------
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch {
	case ev.Subscription == nil && strings.HasPrefix(ev.Type, "customer.subscription."),
		ev.Invoice == nil && strings.HasPrefix(ev.Type, "invoice.payment_"):
		return ErrEmptyEvent
	}

	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscription(ctx, ev, *ev.Subscription)

	case EventSubscriptionDeleted:
		u := *ev.Subscription
		u.Status = "canceled"
		u.Plan = PlanStarter
		return s.applySubscription(ctx, ev, u)

	case EventPaymentSucceeded, EventPaymentFailed:
		inv := ev.Invoice
		acc, err := s.repo.FindByCustomerID(ctx, inv.CustomerID)
		if errors.Is(err, ErrAccountNotFound) {
			log.Printf("STRIPE_WEBHOOK_UNKNOWN_CUSTOMER event=%s customer=%s", ev.Type, inv.CustomerID)
			return nil
		}
		if err != nil {
			return err
		}
		if ev.Type == EventPaymentSucceeded {
			log.Printf("PAYMENT_SUCCEEDED user=%s invoice=%s amount=%d currency=%s",
				acc.UserID, inv.ID, inv.AmountPaid, inv.Currency)
		} else {
			log.Printf("PAYMENT_FAILED user=%s invoice=%s amount=%d currency=%s",
				acc.UserID, inv.ID, inv.AmountDue, inv.Currency)
		}
		return nil

	default:
		log.Printf("STRIPE_WEBHOOK_IGNORED type=%s id=%s", ev.Type, ev.ID)
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, ev Event, u SubscriptionUpdate) error {
	acc, err := s.repo.FindByCustomerID(ctx, u.CustomerID)
	if errors.Is(err, ErrAccountNotFound) {
		log.Printf("STRIPE_WEBHOOK_UNKNOWN_CUSTOMER event=%s customer=%s", ev.Type, u.CustomerID)
		return nil
	}
	if err != nil {
		return err
	}
	if u.Plan == "" {
		u.Plan = PlanStarter
	}
	if err := s.repo.UpdateSubscription(ctx, acc.UserID, u); err != nil {
		return err
	}
	log.Printf("SUBSCRIPTION_UPDATED user=%s subscription=%s status=%s plan=%s period=%s",
		acc.UserID, u.ID, u.Status, u.Plan, u.Period)
	return nil
}
