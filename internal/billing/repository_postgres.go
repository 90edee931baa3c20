package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAccountRepository keeps billing state on the users table.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountSelect = `
	SELECT id, email, name,
	       COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
	       COALESCE(subscription_status, ''), COALESCE(plan, ''),
	       current_period_end, cancel_at_period_end
	FROM users
`

func (r *PostgresAccountRepository) FindByUserID(ctx context.Context, userID string) (*Account, error) {
	return r.findOne(ctx, accountSelect+`WHERE id = $1`, userID)
}

func (r *PostgresAccountRepository) FindByCustomerID(ctx context.Context, customerID string) (*Account, error) {
	return r.findOne(ctx, accountSelect+`WHERE stripe_customer_id = $1`, customerID)
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, query, arg string) (*Account, error) {
	var a Account
	var plan string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.UserID, &a.Email, &a.Name,
		&a.StripeCustomerID, &a.StripeSubscriptionID,
		&a.SubscriptionStatus, &plan,
		&a.CurrentPeriodEnd, &a.CancelAtPeriodEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Plan = Plan(plan)
	return &a, nil
}

func (r *PostgresAccountRepository) SetCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET stripe_customer_id = $2 WHERE id = $1
	`, userID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) UpdateSubscription(ctx context.Context, userID string, u SubscriptionUpdate) error {
	var periodEnd any
	if !u.CurrentPeriodEnd.IsZero() {
		periodEnd = u.CurrentPeriodEnd
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET stripe_subscription_id = $2,
		    subscription_status = $3,
		    plan = NULLIF($4, ''),
		    current_period_end = COALESCE($5, current_period_end),
		    cancel_at_period_end = $6
		WHERE id = $1
	`, userID, u.ID, u.Status, string(u.Plan), periodEnd, u.CancelAtPeriodEnd)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
