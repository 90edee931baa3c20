package menu

import (
	"errors"
	"fmt"
	"sort"
)

var ErrPositionOutOfRange = errors.New("category or item index out of range")

// NewItemName is the placeholder for items added by hand during review.
const NewItemName = "Neues Gericht"

// ItemUpdate is a partial edit; nil fields are left untouched.
type ItemUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *Money   `json:"price,omitempty"`
	ClearPrice  bool     `json:"clear_price,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
}

func (u ItemUpdate) merge(into ItemUpdate) ItemUpdate {
	if u.Name != nil {
		into.Name = u.Name
	}
	if u.Description != nil {
		into.Description = u.Description
	}
	if u.Price != nil {
		into.Price = u.Price
		into.ClearPrice = false
	}
	if u.ClearPrice {
		into.Price = nil
		into.ClearPrice = true
	}
	if u.Allergens != nil {
		into.Allergens = append([]string{}, u.Allergens...)
	}
	return into
}

// Position addresses one item within a review session.
type Position struct {
	Category int `json:"category"`
	Item     int `json:"item"`
}

func (p Position) String() string { return fmt.Sprintf("%d-%d", p.Category, p.Item) }

// Correction is one logged user override.
type Correction struct {
	Position Position   `json:"position"`
	Update   ItemUpdate `json:"update"`
}

// Review layers user corrections over the structurer output. Original
// is never modified; Current is the corrected working copy.
type Review struct {
	Original    ProcessedMenu `json:"original"`
	Current     ProcessedMenu `json:"current"`
	Corrections []Correction  `json:"corrections"`
}

func NewReview(m ProcessedMenu) Review {
	return Review{
		Original:    m.Clone(),
		Current:     m.Clone(),
		Corrections: []Correction{},
	}
}

// Clone returns a deep copy of the review.
func (r Review) Clone() Review {
	out := Review{
		Original:    r.Original.Clone(),
		Current:     r.Current.Clone(),
		Corrections: make([]Correction, len(r.Corrections)),
	}
	for i, c := range r.Corrections {
		out.Corrections[i] = Correction{Position: c.Position, Update: c.Update.merge(ItemUpdate{})}
	}
	return out
}

// ApplyCorrection merges the set fields of u into the addressed item and
// marks it as user confirmed.
func (r *Review) ApplyCorrection(categoryIndex, itemIndex int, u ItemUpdate) error {
	item, err := r.item(categoryIndex, itemIndex)
	if err != nil {
		return err
	}

	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Price != nil {
		p := *u.Price
		item.Price = &p
	}
	if u.ClearPrice {
		item.Price = nil
	}
	if u.Allergens != nil {
		item.Allergens = append([]string{}, u.Allergens...)
	}
	item.Confidence = UserConfidence

	pos := Position{Category: categoryIndex, Item: itemIndex}
	for i := range r.Corrections {
		if r.Corrections[i].Position == pos {
			r.Corrections[i].Update = u.merge(r.Corrections[i].Update)
			return nil
		}
	}
	r.Corrections = append(r.Corrections, Correction{Position: pos, Update: u.merge(ItemUpdate{})})
	r.sortCorrections()
	return nil
}

// AddItem appends a blank user-authored item and returns its index.
func (r *Review) AddItem(categoryIndex int) (int, error) {
	if categoryIndex < 0 || categoryIndex >= len(r.Current.Categories) {
		return 0, ErrPositionOutOfRange
	}
	zero := Money(0)
	cat := &r.Current.Categories[categoryIndex]
	cat.Items = append(cat.Items, ProcessedMenuItem{
		Name:       NewItemName,
		Price:      &zero,
		Allergens:  []string{},
		Confidence: UserConfidence,
	})
	return len(cat.Items) - 1, nil
}

// RemoveItem deletes an item. Later items of the same category move down
// by one; their logged corrections follow them.
func (r *Review) RemoveItem(categoryIndex, itemIndex int) error {
	if _, err := r.item(categoryIndex, itemIndex); err != nil {
		return err
	}
	cat := &r.Current.Categories[categoryIndex]
	cat.Items = append(cat.Items[:itemIndex], cat.Items[itemIndex+1:]...)

	kept := r.Corrections[:0]
	for _, c := range r.Corrections {
		if c.Position.Category == categoryIndex {
			if c.Position.Item == itemIndex {
				continue
			}
			if c.Position.Item > itemIndex {
				c.Position.Item--
			}
		}
		kept = append(kept, c)
	}
	r.Corrections = kept
	return nil
}

// Reset drops every correction and restores the structurer output.
func (r *Review) Reset() {
	r.Current = r.Original.Clone()
	r.Corrections = []Correction{}
}

// CorrectionFor returns the logged correction for a position, if any.
func (r Review) CorrectionFor(categoryIndex, itemIndex int) (ItemUpdate, bool) {
	pos := Position{Category: categoryIndex, Item: itemIndex}
	for _, c := range r.Corrections {
		if c.Position == pos {
			return c.Update, true
		}
	}
	return ItemUpdate{}, false
}

func (r *Review) item(categoryIndex, itemIndex int) (*ProcessedMenuItem, error) {
	if categoryIndex < 0 || categoryIndex >= len(r.Current.Categories) {
		return nil, ErrPositionOutOfRange
	}
	items := r.Current.Categories[categoryIndex].Items
	if itemIndex < 0 || itemIndex >= len(items) {
		return nil, ErrPositionOutOfRange
	}
	return &items[itemIndex], nil
}

func (r *Review) sortCorrections() {
	sort.Slice(r.Corrections, func(i, j int) bool {
		a, b := r.Corrections[i].Position, r.Corrections[j].Position
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Item < b.Item
	})
}
