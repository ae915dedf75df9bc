package applicant

import (
	"context"
	"fmt"
	"sync"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu         sync.RWMutex
	applicants map[id.UserID]*models.Applicant
}

func NewInMemory() *InMemory {
	return &InMemory{applicants: make(map[id.UserID]*models.Applicant)}
}

// GetOrCreate stores candidate unless an applicant already exists for its
// user, and returns whichever is stored.
func (s *InMemory) GetOrCreate(_ context.Context, candidate *models.Applicant) (*models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.applicants[candidate.UserID]; ok {
		return existing.Clone(), nil
	}
	s.applicants[candidate.UserID] = candidate.Clone()
	return candidate.Clone(), nil
}

func (s *InMemory) FindByUserID(_ context.Context, userID id.UserID) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applicants[userID]
	if !ok {
		return nil, fmt.Errorf("applicant not found: %w", sentinel.ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *InMemory) Update(_ context.Context, a *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.applicants[a.UserID]
	if !ok || existing.ID != a.ID {
		return fmt.Errorf("applicant not found: %w", sentinel.ErrNotFound)
	}
	s.applicants[a.UserID] = a.Clone()
	return nil
}
