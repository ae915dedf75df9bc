package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kycgate/internal/webhook/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemory keeps webhook audit records for local runs and tests.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.WebhookEventID]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.WebhookEventID]*models.Event)}
}

func (s *InMemory) Save(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return fmt.Errorf("webhook event %s already exists: %w", e.ID, sentinel.ErrConflict)
	}
	s.events[e.ID] = e.Clone()
	return nil
}

func (s *InMemory) UpdateProcessing(_ context.Context, eventID id.WebhookEventID, p models.Processing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("webhook event not found: %w", sentinel.ErrNotFound)
	}
	e.Processing = p
	if p.LastAttemptAt != nil {
		t := *p.LastAttemptAt
		e.Processing.LastAttemptAt = &t
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID id.WebhookEventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("webhook event not found: %w", sentinel.ErrNotFound)
	}
	return e.Clone(), nil
}

// PurgeExpired deletes events whose retention ended at or before now.
func (s *InMemory) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, e := range s.events {
		if !e.ExpiresAt.After(now) {
			delete(s.events, key)
			purged++
		}
	}
	return purged, nil
}
