package billing

import "time"

// Account is the billing view of a user.
type Account struct {
	UserID               string     `json:"user_id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	SubscriptionStatus   string     `json:"subscription_status,omitempty"`
	Plan                 Plan       `json:"plan,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
}

type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	Plan       Plan
	Period     Period
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SubscriptionUpdate is the provider-neutral content of a subscription event.
type SubscriptionUpdate struct {
	ID                string
	CustomerID        string
	Status            string
	Plan              Plan
	Period            Period
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

type InvoiceInfo struct {
	ID         string
	CustomerID string
	AmountPaid int64
	AmountDue  int64
	Currency   string
}

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
)

// Event is a verified webhook delivery. Only the field matching Type is set.
type Event struct {
	ID           string
	Type         string
	Subscription *SubscriptionUpdate
	Invoice      *InvoiceInfo
}
