package restaurant

import (
	"time"

	"github.com/kemojs/mydigitalmenu/internal/menu"
)

const (
	StatusActive = "active"

	// DefaultMenuName is the name of the menu created during onboarding.
	DefaultMenuName = "Hauptspeisekarte"
)

type Restaurant struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description,omitempty"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Website        string    `json:"website,omitempty"`
	Template       string    `json:"template"`
	QRStyle        string    `json:"qr_style"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type Menu struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Name         string     `json:"name"`
	Currency     string     `json:"currency"`
	IsActive     bool       `json:"is_active"`
	Categories   []Category `json:"categories"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Items     []Item `json:"items"`
}

type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       *menu.Money `json:"price,omitempty"`
	Allergens   []string    `json:"allergens"`
	SortOrder   int         `json:"sort_order"`
}

// PublicMenu is what guests see when they scan the QR code.
type PublicMenu struct {
	Restaurant *Restaurant `json:"restaurant"`
	Menu       *Menu       `json:"menu"`
}
