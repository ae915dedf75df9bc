package verification

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Verification store for local runs and tests.
// Every read and write crosses the boundary as a deep copy.
type InMemory struct {
	mu            sync.RWMutex
	verifications map[id.VerificationID]*models.Verification
}

func NewInMemory() *InMemory {
	return &InMemory{verifications: make(map[id.VerificationID]*models.Verification)}
}

// CreateIfNoActive inserts v unless the user already has an active
// verification, in which case it returns sentinel.ErrConflict.
func (s *InMemory) CreateIfNoActive(_ context.Context, v *models.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.verifications[v.ID]; exists {
		return fmt.Errorf("verification %s already exists: %w", v.ID, sentinel.ErrConflict)
	}
	if v.IsActive() {
		for _, existing := range s.verifications {
			if existing.UserID == v.UserID && existing.IsActive() {
				return fmt.Errorf("user has an active verification: %w", sentinel.ErrConflict)
			}
		}
	}
	s.verifications[v.ID] = v.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, verificationID id.VerificationID) (*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verifications[verificationID]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
	}
	return v.Clone(), nil
}

// FindByExternalApplicantID returns the most recently created verification
// for a provider applicant.
func (s *InMemory) FindByExternalApplicantID(_ context.Context, externalID string) (*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Verification
	for _, v := range s.verifications {
		if v.ExternalApplicantID != externalID {
			continue
		}
		if found == nil || v.CreatedAt.After(found.CreatedAt) {
			found = v
		}
	}
	if found == nil {
		return nil, fmt.Errorf("verification not found for applicant: %w", sentinel.ErrNotFound)
	}
	return found.Clone(), nil
}

func (s *InMemory) FindActiveByUser(_ context.Context, userID id.UserID) (*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.verifications {
		if v.UserID == userID && v.IsActive() {
			return v.Clone(), nil
		}
	}
	return nil, fmt.Errorf("no active verification: %w", sentinel.ErrNotFound)
}

// ListByUser returns the user's verifications, newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Verification, 0)
	for _, v := range s.verifications {
		if v.UserID == userID {
			out = append(out, v.Clone())
		}
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

// ListStale returns up to limit verifications in status whose last update is
// before cutoff, oldest first.
func (s *InMemory) ListStale(_ context.Context, status models.Status, cutoff time.Time, limit int) ([]*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Verification, 0)
	for _, v := range s.verifications {
		if v.Status == status && v.UpdatedAt.Before(cutoff) {
			out = append(out, v.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Verification) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Execute runs validate then mutate against the stored value under the write
// lock. A validate error leaves the record untouched and is returned as-is.
func (s *InMemory) Execute(
	_ context.Context,
	verificationID id.VerificationID,
	validate func(*models.Verification) error,
	mutate func(*models.Verification),
) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.verifications[verificationID]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
	}
	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.verifications[verificationID] = working
	return working.Clone(), nil
}

func newestFirst(a, b *models.Verification) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}
