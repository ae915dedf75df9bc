package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/webhook/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) newEvent(ttl time.Duration) *models.Event {
	raw := []byte(`{"applicantId":"ext-1","type":"applicantPending"}`)
	p, err := models.ParsePayload(raw)
	s.Require().NoError(err)
	return models.NewEvent(p, raw, s.now, ttl)
}

func (s *InMemorySuite) TestSaveAndUpdateProcessing() {
	e := s.newEvent(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, e))
	s.True(errors.Is(s.store.Save(s.ctx, e), sentinel.ErrConflict))

	e.RecordAttempt(models.OutcomeApplied, nil, s.now)
	s.Require().NoError(s.store.UpdateProcessing(s.ctx, e.ID, e.Processing))

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.True(stored.Processing.Processed)
	s.Equal(models.OutcomeApplied, stored.Processing.Outcome)
	s.Equal(1, stored.Processing.Attempts)
	s.Equal(e.Payload, stored.Payload)
}

func (s *InMemorySuite) TestUnknownEvent() {
	_, err := s.store.FindByID(s.ctx, id.NewWebhookEventID())
	s.True(errors.Is(err, sentinel.ErrNotFound))

	err = s.store.UpdateProcessing(s.ctx, id.NewWebhookEventID(), models.Processing{})
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *InMemorySuite) TestPurgeExpired() {
	expired := s.newEvent(time.Hour)
	kept := s.newEvent(48 * time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, expired))
	s.Require().NoError(s.store.Save(s.ctx, kept))

	n, err := s.store.PurgeExpired(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.FindByID(s.ctx, expired.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
	_, err = s.store.FindByID(s.ctx, kept.ID)
	s.NoError(err)
}
