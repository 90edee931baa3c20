package menu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProcessedMenu is the structured result of one OCR pass.
// Categories keep document order.
type ProcessedMenu struct {
	Categories []ProcessedCategory `json:"categories"`
	Currency   string              `json:"currency,omitempty"`
	Language   string              `json:"language,omitempty"`
	Confidence float64             `json:"confidence"`
}

type ProcessedCategory struct {
	Name       string              `json:"name"`
	Items      []ProcessedMenuItem `json:"items"`
	Confidence float64             `json:"confidence"`
}

type ProcessedMenuItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *Money   `json:"price,omitempty"`
	Allergens   []string `json:"allergens"`
	Confidence  float64  `json:"confidence"`
}

// ItemCount returns the number of items across all categories.
func (m ProcessedMenu) ItemCount() int {
	n := 0
	for _, c := range m.Categories {
		n += len(c.Items)
	}
	return n
}

// Clone returns a deep copy so snapshots never share slices.
func (m ProcessedMenu) Clone() ProcessedMenu {
	out := m
	if m.Categories == nil {
		return out
	}
	out.Categories = make([]ProcessedCategory, len(m.Categories))
	for i, c := range m.Categories {
		out.Categories[i] = c.clone()
	}
	return out
}

func (c ProcessedCategory) clone() ProcessedCategory {
	out := c
	out.Items = make([]ProcessedMenuItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.clone()
	}
	return out
}

func (it ProcessedMenuItem) clone() ProcessedMenuItem {
	out := it
	if it.Price != nil {
		p := *it.Price
		out.Price = &p
	}
	out.Allergens = append([]string{}, it.Allergens...)
	return out
}

// --------------------------------------------------
// Money
// --------------------------------------------------

// Money is an amount in minor units (cents). It marshals as a JSON
// number with exactly two fractional digits.
type Money int64

var errInvalidMoney = errors.New("invalid money amount")

// maxWhole keeps whole*100 + 99 inside int64.
const maxWhole = (math.MaxInt64 - 99) / 100

// NewMoney builds an amount from the integer part and a two digit
// fractional part as they appear on a menu ("13", "90").
func NewMoney(whole, frac string) (Money, error) {
	if whole == "" || len(frac) != 2 {
		return 0, errInvalidMoney
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidMoney, err)
	}
	if w < 0 || w > maxWhole {
		return 0, errInvalidMoney
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidMoney, err)
	}
	return Money(w*100 + f), nil
}

// ParseMoney accepts "13.90", "13,90", "13.9" and "13".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, found := strings.Cut(s, ".")
	switch {
	case !found:
		frac = "00"
	case len(frac) == 1:
		frac += "0"
	case len(frac) > 2:
		return 0, errInvalidMoney
	}
	m, err := NewMoney(whole, frac)
	if err != nil {
		return 0, err
	}
	if neg {
		m = -m
	}
	return m, nil
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) Float64() float64 { return float64(m) / 100 }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
