// Package signature authenticates inbound webhook bodies.
package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

// Header carries hex(HMAC-SHA256(secret, body)).
const Header = "X-Payload-Digest"

// Verifier checks the payload digest against the shared webhook secret.
// With no secret configured every body is accepted and the bypass is logged.
type Verifier struct {
	secret []byte
	logger *slog.Logger
}

func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{secret: []byte(secret), logger: logger}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify compares provided against the digest of raw in constant time.
func (v *Verifier) Verify(ctx context.Context, raw []byte, provided string) error {
	if !v.Enabled() {
		v.logger.WarnContext(ctx, "webhook signature verification skipped, no secret configured")
		return nil
	}
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "webhook signature missing")
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature")
	}
	if !hmac.Equal(got, v.digest(raw)) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

func (v *Verifier) digest(raw []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(raw)
	return mac.Sum(nil)
}

// Sign returns the header value a sender with secret would attach to raw.
func Sign(secret string, raw []byte) string {
	return hex.EncodeToString((&Verifier{secret: []byte(secret)}).digest(raw))
}
