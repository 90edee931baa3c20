package menu

import (
	"errors"
	"testing"
)

func sampleReview() Review {
	return NewReview(Structure("VORSPEISEN\nBruschetta 8,90€\nSuppe 5,50€\nOliven 3,90€\nHAUPTGERICHTE\nSchnitzel 16,90€"))
}

func strPtr(s string) *string { return &s }

func moneyPtr(m Money) *Money { return &m }

func TestReview_ApplyCorrection(t *testing.T) {
	r := sampleReview()

	err := r.ApplyCorrection(0, 0, ItemUpdate{Name: strPtr("Bruschetta Classica"), Price: moneyPtr(950)})
	if err != nil {
		t.Fatal(err)
	}

	item := r.Current.Categories[0].Items[0]
	if item.Name != "Bruschetta Classica" || *item.Price != 950 {
		t.Fatalf("correction not applied: %+v", item)
	}
	if item.Confidence != UserConfidence {
		t.Fatalf("expected confidence 1.0, got %f", item.Confidence)
	}
	if r.Original.Categories[0].Items[0].Name != "Bruschetta" {
		t.Fatal("original must never change")
	}
	if len(r.Corrections) != 1 {
		t.Fatalf("expected 1 logged correction, got %d", len(r.Corrections))
	}
}

func TestReview_ApplyCorrectionMergesLog(t *testing.T) {
	r := sampleReview()

	_ = r.ApplyCorrection(0, 1, ItemUpdate{Name: strPtr("Tomatensuppe")})
	_ = r.ApplyCorrection(0, 1, ItemUpdate{Price: moneyPtr(600)})

	if len(r.Corrections) != 1 {
		t.Fatalf("expected merged log entry, got %d", len(r.Corrections))
	}
	u, ok := r.CorrectionFor(0, 1)
	if !ok {
		t.Fatal("expected correction at 0-1")
	}
	if u.Name == nil || *u.Name != "Tomatensuppe" || u.Price == nil || *u.Price != 600 {
		t.Fatalf("unexpected merged update: %+v", u)
	}
}

func TestReview_ClearPrice(t *testing.T) {
	r := sampleReview()

	if err := r.ApplyCorrection(1, 0, ItemUpdate{ClearPrice: true}); err != nil {
		t.Fatal(err)
	}
	if r.Current.Categories[1].Items[0].Price != nil {
		t.Fatal("expected price to be cleared")
	}
}

func TestReview_OutOfRange(t *testing.T) {
	r := sampleReview()

	cases := [][2]int{{-1, 0}, {2, 0}, {0, 3}, {1, -1}}
	for _, c := range cases {
		if err := r.ApplyCorrection(c[0], c[1], ItemUpdate{}); !errors.Is(err, ErrPositionOutOfRange) {
			t.Errorf("ApplyCorrection(%d,%d): expected ErrPositionOutOfRange, got %v", c[0], c[1], err)
		}
		if err := r.RemoveItem(c[0], c[1]); !errors.Is(err, ErrPositionOutOfRange) {
			t.Errorf("RemoveItem(%d,%d): expected ErrPositionOutOfRange, got %v", c[0], c[1], err)
		}
	}
	if _, err := r.AddItem(5); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("AddItem: expected ErrPositionOutOfRange, got %v", err)
	}
}

func TestReview_AddItem(t *testing.T) {
	r := sampleReview()

	idx, err := r.AddItem(1)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}

	item := r.Current.Categories[1].Items[idx]
	if item.Name != NewItemName || item.Price == nil || *item.Price != 0 || item.Confidence != UserConfidence {
		t.Fatalf("unexpected new item: %+v", item)
	}
	if len(r.Original.Categories[1].Items) != 1 {
		t.Fatal("original must never change")
	}
}

// A removal in front of a corrected item must move its correction along,
// otherwise the edit would point at the wrong dish.
func TestReview_RemoveItemRekeysCorrections(t *testing.T) {
	r := sampleReview()

	_ = r.ApplyCorrection(0, 2, ItemUpdate{Name: strPtr("Oliven Mix")})
	_ = r.ApplyCorrection(1, 0, ItemUpdate{Price: moneyPtr(1790)})

	if err := r.RemoveItem(0, 0); err != nil {
		t.Fatal(err)
	}

	if n := len(r.Current.Categories[0].Items); n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
	if r.Current.Categories[0].Items[1].Name != "Oliven Mix" {
		t.Fatalf("unexpected item order: %+v", r.Current.Categories[0].Items)
	}

	if _, ok := r.CorrectionFor(0, 2); ok {
		t.Fatal("stale correction left at 0-2")
	}
	u, ok := r.CorrectionFor(0, 1)
	if !ok || *u.Name != "Oliven Mix" {
		t.Fatalf("expected correction re-keyed to 0-1, got %+v", r.Corrections)
	}
	if _, ok := r.CorrectionFor(1, 0); !ok {
		t.Fatal("correction in other category must be untouched")
	}
}

func TestReview_RemoveCorrectedItemDropsCorrection(t *testing.T) {
	r := sampleReview()

	_ = r.ApplyCorrection(0, 1, ItemUpdate{Name: strPtr("Minestrone")})
	if err := r.RemoveItem(0, 1); err != nil {
		t.Fatal(err)
	}
	if len(r.Corrections) != 0 {
		t.Fatalf("expected empty log, got %+v", r.Corrections)
	}
}

func TestReview_Reset(t *testing.T) {
	r := sampleReview()

	_ = r.ApplyCorrection(0, 0, ItemUpdate{Name: strPtr("X")})
	_, _ = r.AddItem(0)
	_ = r.RemoveItem(1, 0)

	r.Reset()

	if len(r.Corrections) != 0 {
		t.Fatal("expected corrections cleared")
	}
	if r.Current.ItemCount() != r.Original.ItemCount() {
		t.Fatal("expected current to equal original")
	}
	if r.Current.Categories[0].Items[0].Name != "Bruschetta" {
		t.Fatal("expected original name restored")
	}

	// the restored copy must not alias the original
	_ = r.ApplyCorrection(0, 0, ItemUpdate{Name: strPtr("Y")})
	if r.Original.Categories[0].Items[0].Name != "Bruschetta" {
		t.Fatal("reset must deep copy the original")
	}
}

func TestReview_CloneIsIndependent(t *testing.T) {
	r := sampleReview()
	_ = r.ApplyCorrection(0, 0, ItemUpdate{Allergens: []string{AllergenGluten}})

	c := r.Clone()
	_ = c.ApplyCorrection(0, 0, ItemUpdate{Name: strPtr("changed")})
	c.Current.Categories[0].Items[0].Allergens[0] = "mutated"

	if r.Current.Categories[0].Items[0].Name == "changed" {
		t.Fatal("clone shares current menu")
	}
	if r.Current.Categories[0].Items[0].Allergens[0] != AllergenGluten {
		t.Fatal("clone shares allergen slice")
	}
	if r.Corrections[0].Update.Name != nil {
		t.Fatal("clone shares correction log")
	}
}
