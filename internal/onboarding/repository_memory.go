package onboarding

import (
	"context"
	"sync"
)

type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]State
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]State),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *InMemoryRepository) Update(_ context.Context, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *InMemoryRepository) FindOpenByUser(_ context.Context, userID string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *State
	for _, s := range r.sessions {
		if s.UserID != userID || s.Step == StepSubmitted {
			continue
		}
		if found == nil || s.UpdatedAt.After(found.UpdatedAt) {
			s := s
			found = &s
		}
	}
	if found == nil {
		return State{}, ErrNotFound
	}
	return found.Clone(), nil
}
