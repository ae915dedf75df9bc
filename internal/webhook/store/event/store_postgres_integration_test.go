//go:build integration

package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/webhook/models"
	"kycgate/internal/webhook/store/event"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *event.PostgresStore
	ctx      context.Context
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = event.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "webhook_events"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) newEvent(ttl time.Duration) *models.Event {
	raw := []byte(`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"GREEN"}}`)
	p, err := models.ParsePayload(raw)
	s.Require().NoError(err)
	return models.NewEvent(p, raw, s.now, ttl)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	e := s.newEvent(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, e))
	s.True(errors.Is(s.store.Save(s.ctx, e), sentinel.ErrConflict))

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.Payload, stored.Payload)
	s.Equal(e.PayloadDigest, stored.PayloadDigest)
	s.Equal(models.EventApplicantReviewed, stored.Type)
	s.True(e.ReceivedAt.Equal(stored.ReceivedAt))
	s.False(stored.Processing.Processed)
	s.Nil(stored.Processing.LastAttemptAt)
}

func (s *PostgresStoreSuite) TestUpdateProcessing() {
	e := s.newEvent(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, e))

	e.RecordAttempt(models.OutcomeFailed, errors.New("store unavailable"), s.now)
	s.Require().NoError(s.store.UpdateProcessing(s.ctx, e.ID, e.Processing))

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.False(stored.Processing.Processed)
	s.Equal(models.OutcomeFailed, stored.Processing.Outcome)
	s.Equal("store unavailable", stored.Processing.Error)
	s.Require().NotNil(stored.Processing.LastAttemptAt)

	err = s.store.UpdateProcessing(s.ctx, id.NewWebhookEventID(), e.Processing)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestPurgeExpired() {
	expired := s.newEvent(time.Minute)
	kept := s.newEvent(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, expired))
	s.Require().NoError(s.store.Save(s.ctx, kept))

	n, err := s.store.PurgeExpired(s.ctx, s.now.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.FindByID(s.ctx, kept.ID)
	s.NoError(err)
}
