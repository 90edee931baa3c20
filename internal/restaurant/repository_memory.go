package restaurant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu          sync.RWMutex
	restaurants map[string]*Restaurant
	menus       map[string]*Menu
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		restaurants: make(map[string]*Restaurant),
		menus:       make(map[string]*Menu),
	}
}

func (r *InMemoryRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.restaurants {
		if res.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) CreateWithMenu(_ context.Context, res *Restaurant, m *Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.restaurants {
		if existing.Slug == res.Slug {
			return ErrSlugTaken
		}
	}

	now := time.Now()
	res.ID = uuid.New().String()
	res.CreatedAt = now
	m.ID = uuid.New().String()
	m.RestaurantID = res.ID
	m.CreatedAt = now
	for ci := range m.Categories {
		m.Categories[ci].ID = uuid.New().String()
		for ii := range m.Categories[ci].Items {
			m.Categories[ci].Items[ii].ID = uuid.New().String()
		}
	}

	stored := *res
	r.restaurants[res.ID] = &stored
	menuCopy := *m
	r.menus[res.ID] = &menuCopy
	return nil
}

func (r *InMemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Restaurant
	for _, res := range r.restaurants {
		if res.OwnerID == ownerID {
			c := *res
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (*Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.restaurants {
		if res.Slug == slug {
			c := *res
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) GetActiveMenu(_ context.Context, restaurantID string) (*Menu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.menus[restaurantID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m
	return &c, nil
}
