package restaurant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kemojs/mydigitalmenu/internal/menu"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM restaurants WHERE slug = $1)
	`, slug).Scan(&exists)
	return exists, err
}

// --------------------------------------------------
// Create restaurant + menu tree in one transaction
// --------------------------------------------------
func (r *PostgresRepository) CreateWithMenu(ctx context.Context, res *Restaurant, m *Menu) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO restaurants (
			owner_id, name, slug, description, address, phone, website,
			template, qr_style, primary_color, secondary_color, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`,
		res.OwnerID, res.Name, res.Slug, res.Description, res.Address, res.Phone, res.Website,
		res.Template, res.QRStyle, res.PrimaryColor, res.SecondaryColor, res.Status,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlugTaken
		}
		return err
	}

	m.RestaurantID = res.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO menus (restaurant_id, name, currency, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.RestaurantID, m.Name, m.Currency, m.IsActive).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}

	for ci := range m.Categories {
		cat := &m.Categories[ci]
		err = tx.QueryRow(ctx, `
			INSERT INTO menu_categories (menu_id, name, sort_order)
			VALUES ($1, $2, $3)
			RETURNING id
		`, m.ID, cat.Name, cat.SortOrder).Scan(&cat.ID)
		if err != nil {
			return err
		}

		for ii := range cat.Items {
			it := &cat.Items[ii]
			err = tx.QueryRow(ctx, `
				INSERT INTO menu_items (category_id, name, description, price_cents, allergens, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, cat.ID, it.Name, it.Description, priceCents(it.Price), it.Allergens, it.SortOrder).Scan(&it.ID)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Restaurant, error) {
	rows, err := r.db.Query(ctx, restaurantSelect+`
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []*Restaurant
	for rows.Next() {
		res, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, res)
	}
	return restaurants, rows.Err()
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Restaurant, error) {
	res, err := scanRestaurant(r.db.QueryRow(ctx, restaurantSelect+`WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// --------------------------------------------------
// Active menu with categories and items, in display order
// --------------------------------------------------
func (r *PostgresRepository) GetActiveMenu(ctx context.Context, restaurantID string) (*Menu, error) {
	m := &Menu{}
	err := r.db.QueryRow(ctx, `
		SELECT id, restaurant_id, name, currency, is_active, created_at
		FROM menus
		WHERE restaurant_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, restaurantID).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Currency, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.sort_order,
		       i.id, i.name, i.description, i.price_cents, i.allergens, i.sort_order
		FROM menu_categories c
		LEFT JOIN menu_items i ON i.category_id = c.id
		WHERE c.menu_id = $1
		ORDER BY c.sort_order, i.sort_order
	`, m.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m.Categories = []Category{}
	for rows.Next() {
		var (
			catID, catName string
			catOrder       int
			itemID, name   *string
			desc           *string
			price          *int64
			allergens      []string
			itemOrder      *int
		)
		if err := rows.Scan(&catID, &catName, &catOrder, &itemID, &name, &desc, &price, &allergens, &itemOrder); err != nil {
			return nil, err
		}
		if n := len(m.Categories); n == 0 || m.Categories[n-1].ID != catID {
			m.Categories = append(m.Categories, Category{ID: catID, Name: catName, SortOrder: catOrder, Items: []Item{}})
		}
		if itemID == nil {
			continue
		}
		it := Item{ID: *itemID, Name: *name, Allergens: allergens, SortOrder: *itemOrder}
		if desc != nil {
			it.Description = *desc
		}
		if price != nil {
			p := menu.Money(*price)
			it.Price = &p
		}
		if it.Allergens == nil {
			it.Allergens = []string{}
		}
		cat := &m.Categories[len(m.Categories)-1]
		cat.Items = append(cat.Items, it)
	}
	return m, rows.Err()
}

const restaurantSelect = `
	SELECT id, owner_id, name, slug, description, address, phone, website,
	       template, qr_style, primary_color, secondary_color, status, created_at
	FROM restaurants
`

func scanRestaurant(row pgx.Row) (*Restaurant, error) {
	var res Restaurant
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.Name, &res.Slug, &res.Description, &res.Address, &res.Phone, &res.Website,
		&res.Template, &res.QRStyle, &res.PrimaryColor, &res.SecondaryColor, &res.Status, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func priceCents(p *menu.Money) *int64 {
	if p == nil {
		return nil
	}
	c := p.Cents()
	return &c
}
