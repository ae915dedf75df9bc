package models

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// AccessTokenHash records that a provider SDK token was issued without
// keeping the token. Only the SHA-256 digest and the validity window are
// stored; there is no way back to the plaintext.
type AccessTokenHash struct {
	digest    string
	issuedAt  time.Time
	expiresAt time.Time
}

// HashAccessToken digests plaintext. The caller hands plaintext to its client
// once and drops it.
func HashAccessToken(plaintext string, issuedAt, expiresAt time.Time) AccessTokenHash {
	sum := sha256.Sum256([]byte(plaintext))
	return AccessTokenHash{digest: hex.EncodeToString(sum[:]), issuedAt: issuedAt, expiresAt: expiresAt}
}

// RestoreAccessTokenHash rebuilds a hash read from storage.
func RestoreAccessTokenHash(digest string, issuedAt, expiresAt time.Time) AccessTokenHash {
	return AccessTokenHash{digest: digest, issuedAt: issuedAt, expiresAt: expiresAt}
}

// Digest is the hex SHA-256 for persistence.
func (h AccessTokenHash) Digest() string       { return h.digest }
func (h AccessTokenHash) IssuedAt() time.Time  { return h.issuedAt }
func (h AccessTokenHash) ExpiresAt() time.Time { return h.expiresAt }
func (h AccessTokenHash) IsZero() bool         { return h.digest == "" }

// IsLive reports whether a token was issued and has not expired at now.
func (h AccessTokenHash) IsLive(now time.Time) bool {
	return !h.IsZero() && now.Before(h.expiresAt)
}

// Matches compares plaintext against the stored digest in constant time.
func (h AccessTokenHash) Matches(plaintext string) bool {
	if h.IsZero() {
		return false
	}
	sum := sha256.Sum256([]byte(plaintext))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(h.digest)) == 1
}
