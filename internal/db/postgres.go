package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectPostgres opens a pool, pings it and brings the schema up to date.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}
	log.Println("POSTGRES_CONNECTED")

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return pool, nil
}

// InitSchema creates or updates the database schema. Every statement is
// idempotent so it runs on each start.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("%s: %w", stmt.name, err)
		}
	}
	log.Println("SCHEMA_READY")
	return nil
}

type statement struct {
	name string
	sql  string
}

var schema = []statement{
	// -------------------------------
	// USERS (+ billing columns)
	// -------------------------------
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'RESTAURANT_OWNER',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"users billing columns", `
		ALTER TABLE users
			ADD COLUMN IF NOT EXISTS stripe_customer_id VARCHAR(255) UNIQUE,
			ADD COLUMN IF NOT EXISTS stripe_subscription_id VARCHAR(255),
			ADD COLUMN IF NOT EXISTS subscription_status VARCHAR(50),
			ADD COLUMN IF NOT EXISTS plan VARCHAR(50),
			ADD COLUMN IF NOT EXISTS current_period_end TIMESTAMPTZ,
			ADD COLUMN IF NOT EXISTS cancel_at_period_end BOOLEAN NOT NULL DEFAULT false
	`},

	// -------------------------------
	// RESTAURANTS + MENU TREE
	// -------------------------------
	{"restaurants", `
		CREATE TABLE IF NOT EXISTS restaurants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES users(id),
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(80) UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			website VARCHAR(500) NOT NULL DEFAULT '',
			template VARCHAR(50) NOT NULL,
			qr_style VARCHAR(50) NOT NULL,
			primary_color VARCHAR(7) NOT NULL,
			secondary_color VARCHAR(7) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"menus", `
		CREATE TABLE IF NOT EXISTS menus (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"menu_categories", `
		CREATE TABLE IF NOT EXISTS menu_categories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			menu_id UUID NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			sort_order INT NOT NULL
		)
	`},
	{"menu_items", `
		CREATE TABLE IF NOT EXISTS menu_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			category_id UUID NOT NULL REFERENCES menu_categories(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price_cents BIGINT,
			allergens TEXT[] NOT NULL DEFAULT '{}',
			sort_order INT NOT NULL
		)
	`},

	// -------------------------------
	// ONBOARDING SESSIONS
	// -------------------------------
	{"onboarding_sessions", `
		CREATE TABLE IF NOT EXISTS onboarding_sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			step INT NOT NULL,
			state JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`},
	{"onboarding_sessions index", `
		CREATE INDEX IF NOT EXISTS onboarding_sessions_user_idx
			ON onboarding_sessions (user_id, updated_at DESC)
	`},
}
