package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/platform/postgres"
	"kycgate/internal/webhook/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

const eventColumns = `id, event_type, external_applicant_id, payload, payload_digest, received_at,
	expires_at, processed, attempts, last_attempt_at, last_error, outcome`

// PostgresStore persists webhook audit records in the webhook_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, e *models.Event) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO webhook_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(e.ID), string(e.Type), e.ExternalApplicantID, e.Payload, e.PayloadDigest, e.ReceivedAt,
		e.ExpiresAt, e.Processing.Processed, e.Processing.Attempts, nullTime(e.Processing.LastAttemptAt),
		e.Processing.Error, string(e.Processing.Outcome),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("webhook event %s already exists: %w", e.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProcessing(ctx context.Context, eventID id.WebhookEventID, p models.Processing) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE webhook_events
		SET processed = $2, attempts = $3, last_attempt_at = $4, last_error = $5, outcome = $6
		WHERE id = $1`,
		uuid.UUID(eventID), p.Processed, p.Attempts, nullTime(p.LastAttemptAt), p.Error, string(p.Outcome),
	)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("webhook event not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.WebhookEventID) (*models.Event, error) {
	var (
		e         models.Event
		rawID     uuid.UUID
		eventType string
		lastAt    sql.NullTime
		outcome   string
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, uuid.UUID(eventID),
	).Scan(
		&rawID, &eventType, &e.ExternalApplicantID, &e.Payload, &e.PayloadDigest, &e.ReceivedAt,
		&e.ExpiresAt, &e.Processing.Processed, &e.Processing.Attempts, &lastAt, &e.Processing.Error, &outcome,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook event not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find webhook event: %w", err)
	}
	e.ID = id.WebhookEventID(rawID)
	e.Type = models.EventType(eventType)
	e.Processing.Outcome = models.Outcome(outcome)
	if lastAt.Valid {
		t := lastAt.Time
		e.Processing.LastAttemptAt = &t
	}
	return &e, nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM webhook_events WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge webhook events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge webhook events: %w", err)
	}
	return int(n), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
