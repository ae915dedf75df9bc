package applicant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

const applicantColumns = `id, user_id, external_applicant_id, email, phone, first_name, last_name,
	date_of_birth, country, nationality, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetOrCreate relies on the user_id unique constraint: a losing concurrent
// insert falls through to the winner's row.
func (s *PostgresStore) GetOrCreate(ctx context.Context, candidate *models.Applicant) (*models.Applicant, error) {
	conn := tx.Conn(ctx, s.db)
	p := candidate.Profile
	_, err := conn.ExecContext(ctx, `
		INSERT INTO applicants (`+applicantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.UUID(candidate.ID), candidate.UserID.String(), nullString(candidate.ExternalApplicantID),
		p.Email, p.Phone, p.FirstName, p.LastName, p.DateOfBirth, p.Country, p.Nationality,
		candidate.CreatedAt, candidate.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert applicant: %w", err)
	}
	return s.FindByUserID(ctx, candidate.UserID)
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Applicant, error) {
	a, err := scanApplicant(tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+applicantColumns+` FROM applicants WHERE user_id = $1`, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find applicant by user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find applicant by user: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Applicant) error {
	p := a.Profile
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE applicants SET
			external_applicant_id = $2, email = $3, phone = $4, first_name = $5, last_name = $6,
			date_of_birth = $7, country = $8, nationality = $9, updated_at = $10
		WHERE id = $1`,
		uuid.UUID(a.ID), nullString(a.ExternalApplicantID), p.Email, p.Phone, p.FirstName, p.LastName,
		p.DateOfBirth, p.Country, p.Nationality, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update applicant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update applicant: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update applicant: %w", sentinel.ErrNotFound)
	}
	return nil
}

func scanApplicant(row *sql.Row) (*models.Applicant, error) {
	var (
		a          models.Applicant
		rawID      uuid.UUID
		userID     string
		externalID sql.NullString
	)
	err := row.Scan(&rawID, &userID, &externalID,
		&a.Profile.Email, &a.Profile.Phone, &a.Profile.FirstName, &a.Profile.LastName,
		&a.Profile.DateOfBirth, &a.Profile.Country, &a.Profile.Nationality,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = id.ApplicantID(rawID)
	a.UserID = id.UserID(userID)
	a.ExternalApplicantID = externalID.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
