package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

func TestRowMapping(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	v, err := models.NewVerification(id.NewVerificationID(), "user-1", id.NewApplicantID(),
		models.DefaultLevelName, "ext-1", models.HashAccessToken("tok", now, now.Add(time.Hour)), now)
	require.NoError(t, err)
	v.ApplyTransition(models.StatusPending, now)

	t.Run("round trip", func(t *testing.T) {
		got, err := fromRow(toRow(v))
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, v.AccessToken.Digest(), got.AccessToken.Digest())
	})

	t.Run("unknown status is refused", func(t *testing.T) {
		row := toRow(v)
		row.Status = "pending"
		_, err := fromRow(row)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
