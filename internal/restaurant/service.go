package restaurant

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/onboarding"
)

const maxSlugLength = 50

var slugStrip = regexp.MustCompile(`[^a-z0-9 -]`)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Slugify lowercases name, drops everything outside [a-z0-9 -], turns
// spaces into dashes and cuts the result to 50 characters.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
	s = strings.ReplaceAll(s, " ", "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return s
}

// --------------------------------------------------
// Onboarding completion
// --------------------------------------------------
func (s *Service) CompleteOnboarding(ctx context.Context, sub onboarding.Submission) (onboarding.Result, error) {
	if strings.TrimSpace(sub.Business.Name) == "" {
		return onboarding.Result{}, onboarding.ErrBusinessNameRequired
	}

	slug, err := s.uniqueSlug(ctx, sub.Business.Name)
	if err != nil {
		return onboarding.Result{}, err
	}

	res := &Restaurant{
		OwnerID:        sub.UserID,
		Name:           strings.TrimSpace(sub.Business.Name),
		Slug:           slug,
		Description:    sub.Business.Description,
		Address:        sub.Business.Address,
		Phone:          sub.Business.Phone,
		Website:        sub.Business.Website,
		Template:       sub.Design.Template,
		QRStyle:        sub.Design.QRStyle,
		PrimaryColor:   sub.Design.PrimaryColor,
		SecondaryColor: sub.Design.SecondaryColor,
		Status:         StatusActive,
	}
	m := menuFrom(sub.Menu)

	err = s.repo.CreateWithMenu(ctx, res, m)
	if errors.Is(err, ErrSlugTaken) {
		// lost a race with another signup using the same name
		res.Slug = s.suffixed(slug)
		err = s.repo.CreateWithMenu(ctx, res, m)
	}
	if err != nil {
		return onboarding.Result{}, err
	}

	log.Printf("RESTAURANT_CREATED id=%s slug=%s owner=%s categories=%d items=%d",
		res.ID, res.Slug, res.OwnerID, len(m.Categories), sub.Menu.ItemCount())

	return onboarding.Result{RestaurantID: res.ID, Slug: res.Slug}, nil
}

func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		slug = "restaurant"
	}
	taken, err := s.repo.SlugExists(ctx, slug)
	if err != nil {
		return "", err
	}
	if taken {
		return s.suffixed(slug), nil
	}
	return slug, nil
}

func (s *Service) suffixed(slug string) string {
	return slug + "-" + strconv.FormatInt(s.now().UnixMilli(), 10)
}

func menuFrom(pm menu.ProcessedMenu) *Menu {
	currency := pm.Currency
	if currency == "" {
		currency = menu.DefaultCurrency
	}
	m := &Menu{
		Name:       DefaultMenuName,
		Currency:   currency,
		IsActive:   true,
		Categories: make([]Category, 0, len(pm.Categories)),
	}
	for ci, c := range pm.Categories {
		cat := Category{Name: c.Name, SortOrder: ci, Items: make([]Item, 0, len(c.Items))}
		for ii, it := range c.Items {
			item := Item{
				Name:        it.Name,
				Description: it.Description,
				Allergens:   append([]string{}, it.Allergens...),
				SortOrder:   ii,
			}
			if it.Price != nil {
				p := *it.Price
				item.Price = &p
			}
			cat.Items = append(cat.Items, item)
		}
		m.Categories = append(m.Categories, cat)
	}
	return m
}

// --------------------------------------------------
// Reads
// --------------------------------------------------
func (s *Service) ListMyRestaurants(ctx context.Context, ownerID string) ([]*Restaurant, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) PublicMenu(ctx context.Context, slug string) (*PublicMenu, error) {
	res, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.GetActiveMenu(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	return &PublicMenu{Restaurant: res, Menu: m}, nil
}
