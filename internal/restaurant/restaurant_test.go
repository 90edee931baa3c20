package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/onboarding"
)

func money(cents int64) *menu.Money {
	m := menu.Money(cents)
	return &m
}

func sampleSubmission(name string) onboarding.Submission {
	return onboarding.Submission{
		SessionID: "session-1",
		UserID:    "owner-1",
		Business:  onboarding.BusinessDetails{Name: name, Phone: "+49 30 123"},
		Menu: menu.ProcessedMenu{
			Currency: "EUR",
			Categories: []menu.ProcessedCategory{
				{Name: "Vorspeisen", Items: []menu.ProcessedMenuItem{
					{Name: "Bruschetta", Price: money(690), Allergens: []string{menu.AllergenGluten}},
					{Name: "Suppe"},
				}},
				{Name: "Desserts", Items: []menu.ProcessedMenuItem{
					{Name: "Tiramisu", Price: money(550)},
				}},
			},
		},
		Design: onboarding.DefaultDesign(),
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Pizzeria Da Mario":     "pizzeria-da-mario",
		"  Café Müller! ":       "caf-mller",
		"Bar & Grill 24":        "bar--grill-24",
		strings.Repeat("a", 80): strings.Repeat("a", 50),
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompleteOnboardingCreatesMenuTree(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	res, err := svc.CompleteOnboarding(ctx, sampleSubmission("Pizzeria Da Mario"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Slug != "pizzeria-da-mario" || res.RestaurantID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	pm, err := svc.PublicMenu(ctx, res.Slug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Menu.Name != DefaultMenuName || !pm.Menu.IsActive {
		t.Fatalf("unexpected menu: %+v", pm.Menu)
	}
	if len(pm.Menu.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(pm.Menu.Categories))
	}
	first := pm.Menu.Categories[0]
	if first.Name != "Vorspeisen" || len(first.Items) != 2 || first.Items[1].SortOrder != 1 {
		t.Fatalf("unexpected first category: %+v", first)
	}
	if first.Items[0].Price == nil || first.Items[0].Price.Cents() != 690 {
		t.Fatalf("price not carried over: %+v", first.Items[0])
	}
	if first.Items[1].Price != nil {
		t.Fatalf("expected unpriced item to stay unpriced")
	}
	if pm.Restaurant.Template != "modern" || pm.Restaurant.OwnerID != "owner-1" {
		t.Fatalf("unexpected restaurant: %+v", pm.Restaurant)
	}
}

func TestCompleteOnboardingSuffixesTakenSlug(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	if _, err := svc.CompleteOnboarding(ctx, sampleSubmission("Da Mario")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := svc.CompleteOnboarding(ctx, sampleSubmission("Da Mario"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Slug != "da-mario-1700000000000" {
		t.Fatalf("unexpected slug %q", res.Slug)
	}
}

func TestCompleteOnboardingRequiresName(t *testing.T) {
	svc := NewService(NewInMemoryRepository())

	_, err := svc.CompleteOnboarding(context.Background(), sampleSubmission("  "))
	if !errors.Is(err, onboarding.ErrBusinessNameRequired) {
		t.Fatalf("expected ErrBusinessNameRequired, got %v", err)
	}
}

func TestCompleteOnboardingEmptyMenu(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	sub := sampleSubmission("Leer")
	sub.Menu = menu.ProcessedMenu{}

	res, err := svc.CompleteOnboarding(context.Background(), sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pm, err := svc.PublicMenu(context.Background(), res.Slug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pm.Menu.Categories) != 0 || pm.Menu.Currency != menu.DefaultCurrency {
		t.Fatalf("unexpected menu: %+v", pm.Menu)
	}
}

func TestGetPublicMenuHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewInMemoryRepository())
	if _, err := svc.CompleteOnboarding(context.Background(), sampleSubmission("Da Mario")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := gin.New()
	r.GET("/menu/:slug", NewHandler(svc).GetPublicMenu)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu/da-mario", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body PublicMenu
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Restaurant.Slug != "da-mario" || len(body.Menu.Categories) != 2 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListMyRestaurantsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewInMemoryRepository())
	if _, err := svc.CompleteOnboarding(context.Background(), sampleSubmission("Da Mario")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := gin.New()
	r.GET("/restaurants/me", func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-User"))
		c.Next()
	}, NewHandler(svc).ListMyRestaurants)

	for user, want := range map[string]int{"owner-1": 1, "someone-else": 0} {
		req := httptest.NewRequest(http.MethodGet, "/restaurants/me", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var list []Restaurant
		if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(list) != want {
			t.Errorf("user %s: expected %d restaurants, got %d", user, want, len(list))
		}
	}
}
