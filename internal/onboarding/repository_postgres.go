package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores each snapshot as one JSONB document. Step and
// owner are mirrored into columns for lookups.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s State) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO onboarding_sessions (id, user_id, step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, int(s.Step), doc, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (State, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `
		SELECT state FROM onboarding_sessions WHERE id = $1
	`, id).Scan(&doc)
	return decodeState(doc, err)
}

func (r *PostgresRepository) Update(ctx context.Context, s State) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE onboarding_sessions
		SET step = $2, state = $3, updated_at = $4
		WHERE id = $1
	`, s.ID, int(s.Step), doc, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindOpenByUser(ctx context.Context, userID string) (State, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `
		SELECT state
		FROM onboarding_sessions
		WHERE user_id = $1 AND step < $2
		ORDER BY updated_at DESC
		LIMIT 1
	`, userID, int(StepSubmitted)).Scan(&doc)
	return decodeState(doc, err)
}

func decodeState(doc []byte, err error) (State, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(doc, &s); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
