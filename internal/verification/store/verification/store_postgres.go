package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kycgate/internal/platform/postgres"
	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

const activeIndex = "verifications_one_active_per_user"

const verificationColumns = `id, user_id, applicant_id, level_name, status, external_applicant_id,
	inspection_id, review_answer, review_reject_type, review_reject_labels, review_moderation,
	review_client_comment, review_reviewed_at, access_token_hash, access_token_issued_at,
	access_token_expires_at, submitted_at, reviewed_at, approved_at, rejected_at, created_at, updated_at`

// PostgresStore persists verifications in PostgreSQL. The partial unique
// index verifications_one_active_per_user enforces one active row per user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNoActive(ctx context.Context, v *models.Verification) error {
	row := toRow(v)
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO verifications (`+verificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		row.args()...,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("user has an active verification: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, verificationID id.VerificationID) (*models.Verification, error) {
	return s.findOne(ctx, "find verification by id",
		`SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, verificationID.String())
}

func (s *PostgresStore) FindByExternalApplicantID(ctx context.Context, externalID string) (*models.Verification, error) {
	return s.findOne(ctx, "find verification by applicant",
		`SELECT `+verificationColumns+` FROM verifications
		 WHERE external_applicant_id = $1 ORDER BY created_at DESC LIMIT 1`, externalID)
}

func (s *PostgresStore) FindActiveByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	return s.findOne(ctx, "find active verification",
		`SELECT `+verificationColumns+` FROM verifications
		 WHERE user_id = $1 AND status = ANY($2)`, userID.String(), pq.Array(statusStrings(models.ActiveStatuses())))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Verification, error) {
	return s.findMany(ctx, "list verifications by user",
		`SELECT `+verificationColumns+` FROM verifications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID.String())
}

func (s *PostgresStore) ListStale(ctx context.Context, status models.Status, cutoff time.Time, limit int) ([]*models.Verification, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.findMany(ctx, "list stale verifications",
		`SELECT `+verificationColumns+` FROM verifications
		 WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3`,
		status.String(), cutoff, limit)
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate then mutate,
// and writes every mutable column back in the same transaction.
func (s *PostgresStore) Execute(
	ctx context.Context,
	verificationID id.VerificationID,
	validate func(*models.Verification) error,
	mutate func(*models.Verification),
) (*models.Verification, error) {
	var result *models.Verification
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		v, err := scanVerification(conn.QueryRowContext(ctx,
			`SELECT `+verificationColumns+` FROM verifications WHERE id = $1 FOR UPDATE`, verificationID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock verification: %w", err)
		}
		if err := validate(v); err != nil {
			return err
		}
		mutate(v)

		row := toRow(v)
		_, err = conn.ExecContext(ctx, `
			UPDATE verifications SET
				status = $2, inspection_id = $3, review_answer = $4, review_reject_type = $5,
				review_reject_labels = $6, review_moderation = $7, review_client_comment = $8,
				review_reviewed_at = $9, access_token_hash = $10, access_token_issued_at = $11,
				access_token_expires_at = $12, submitted_at = $13, reviewed_at = $14,
				approved_at = $15, rejected_at = $16, updated_at = $17
			WHERE id = $1`,
			row.ID, row.Status, row.InspectionID, row.ReviewAnswer, row.ReviewRejectType,
			row.ReviewRejectLabels, row.ReviewModeration, row.ReviewClientComment,
			row.ReviewReviewedAt, row.AccessTokenHash, row.AccessTokenIssuedAt,
			row.AccessTokenExpiresAt, row.SubmittedAt, row.ReviewedAt,
			row.ApprovedAt, row.RejectedAt, row.UpdatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, activeIndex) {
				return fmt.Errorf("user has an active verification: %w", sentinel.ErrConflict)
			}
			return fmt.Errorf("update verification: %w", err)
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Verification, error) {
	v, err := scanVerification(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *PostgresStore) findMany(ctx context.Context, op, query string, args ...any) ([]*models.Verification, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*models.Verification, 0)
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type verificationRow struct {
	ID                   string
	UserID               string
	ApplicantID          uuid.UUID
	LevelName            string
	Status               string
	ExternalApplicantID  string
	InspectionID         string
	ReviewAnswer         sql.NullString
	ReviewRejectType     sql.NullString
	ReviewRejectLabels   pq.StringArray
	ReviewModeration     sql.NullString
	ReviewClientComment  sql.NullString
	ReviewReviewedAt     sql.NullTime
	AccessTokenHash      string
	AccessTokenIssuedAt  sql.NullTime
	AccessTokenExpiresAt sql.NullTime
	SubmittedAt          sql.NullTime
	ReviewedAt           sql.NullTime
	ApprovedAt           sql.NullTime
	RejectedAt           sql.NullTime
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (r *verificationRow) args() []any {
	return []any{
		r.ID, r.UserID, r.ApplicantID, r.LevelName, r.Status, r.ExternalApplicantID,
		r.InspectionID, r.ReviewAnswer, r.ReviewRejectType, r.ReviewRejectLabels, r.ReviewModeration,
		r.ReviewClientComment, r.ReviewReviewedAt, r.AccessTokenHash, r.AccessTokenIssuedAt,
		r.AccessTokenExpiresAt, r.SubmittedAt, r.ReviewedAt, r.ApprovedAt, r.RejectedAt,
		r.CreatedAt, r.UpdatedAt,
	}
}

func scanVerification(sc scanner) (*models.Verification, error) {
	var r verificationRow
	err := sc.Scan(
		&r.ID, &r.UserID, &r.ApplicantID, &r.LevelName, &r.Status, &r.ExternalApplicantID,
		&r.InspectionID, &r.ReviewAnswer, &r.ReviewRejectType, &r.ReviewRejectLabels, &r.ReviewModeration,
		&r.ReviewClientComment, &r.ReviewReviewedAt, &r.AccessTokenHash, &r.AccessTokenIssuedAt,
		&r.AccessTokenExpiresAt, &r.SubmittedAt, &r.ReviewedAt, &r.ApprovedAt, &r.RejectedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fromRow(r)
}

func toRow(v *models.Verification) verificationRow {
	r := verificationRow{
		ID:                  v.ID.String(),
		UserID:              v.UserID.String(),
		ApplicantID:         uuid.UUID(v.ApplicantID),
		LevelName:           v.LevelName,
		Status:              v.Status.String(),
		ExternalApplicantID: v.ExternalApplicantID,
		InspectionID:        v.InspectionID,
		AccessTokenHash:     v.AccessToken.Digest(),
		SubmittedAt:         nullTime(v.SubmittedAt),
		ReviewedAt:          nullTime(v.ReviewedAt),
		ApprovedAt:          nullTime(v.ApprovedAt),
		RejectedAt:          nullTime(v.RejectedAt),
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
	if !v.AccessToken.IsZero() {
		r.AccessTokenIssuedAt = sql.NullTime{Time: v.AccessToken.IssuedAt(), Valid: true}
		r.AccessTokenExpiresAt = sql.NullTime{Time: v.AccessToken.ExpiresAt(), Valid: true}
	}
	if rr := v.ReviewResult; rr != nil {
		r.ReviewAnswer = sql.NullString{String: string(rr.Answer), Valid: true}
		r.ReviewRejectType = sql.NullString{String: string(rr.RejectType), Valid: rr.RejectType != ""}
		r.ReviewRejectLabels = pq.StringArray(rr.RejectLabels)
		r.ReviewModeration = sql.NullString{String: rr.ModerationComment, Valid: rr.ModerationComment != ""}
		r.ReviewClientComment = sql.NullString{String: rr.ClientComment, Valid: rr.ClientComment != ""}
		r.ReviewReviewedAt = sql.NullTime{Time: rr.ReviewedAt, Valid: !rr.ReviewedAt.IsZero()}
	}
	return r
}

// fromRow rebuilds a Verification, refusing rows whose status is not one the
// lifecycle knows.
func fromRow(r verificationRow) (*models.Verification, error) {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("verification %s has status %q: %w", r.ID, r.Status, err)
	}
	v := &models.Verification{
		ID:                  id.VerificationID(r.ID),
		UserID:              id.UserID(r.UserID),
		ApplicantID:         id.ApplicantID(r.ApplicantID),
		LevelName:           r.LevelName,
		Status:              status,
		ExternalApplicantID: r.ExternalApplicantID,
		InspectionID:        r.InspectionID,
		SubmittedAt:         timeFromNull(r.SubmittedAt),
		ReviewedAt:          timeFromNull(r.ReviewedAt),
		ApprovedAt:          timeFromNull(r.ApprovedAt),
		RejectedAt:          timeFromNull(r.RejectedAt),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.AccessTokenHash != "" {
		v.AccessToken = models.RestoreAccessTokenHash(r.AccessTokenHash, r.AccessTokenIssuedAt.Time, r.AccessTokenExpiresAt.Time)
	}
	if r.ReviewAnswer.Valid {
		var labels []string
		if len(r.ReviewRejectLabels) > 0 {
			labels = []string(r.ReviewRejectLabels)
		}
		v.ReviewResult = &models.ReviewResult{
			Answer:            models.ReviewAnswer(r.ReviewAnswer.String),
			RejectType:        models.RejectType(r.ReviewRejectType.String),
			RejectLabels:      labels,
			ModerationComment: r.ReviewModeration.String,
			ClientComment:     r.ReviewClientComment.String,
			ReviewedAt:        r.ReviewReviewedAt.Time,
		}
	}
	return v, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = st.String()
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeFromNull(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
