package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Request signing headers.
const (
	HeaderAppToken  = "X-App-Token"
	HeaderTimestamp = "X-App-Access-Ts"
	HeaderSignature = "X-App-Access-Sig"
)

// Signer produces the per-request HMAC the provider authenticates with.
type Signer struct {
	appToken string
	secret   []byte
}

func NewSigner(appToken, secret string) *Signer {
	return &Signer{appToken: appToken, secret: []byte(secret)}
}

// Sign returns hex(HMAC-SHA256(secret, ts + UPPER(method) + path + body)).
// path includes the query string exactly as sent.
func (s *Signer) Sign(ts int64, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte(strings.ToUpper(method)))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the three signing headers for a request sent at now.
func (s *Signer) Headers(now time.Time, method, path string, body []byte) map[string]string {
	ts := now.Unix()
	return map[string]string{
		HeaderAppToken:  s.appToken,
		HeaderTimestamp: strconv.FormatInt(ts, 10),
		HeaderSignature: s.Sign(ts, method, path, body),
	}
}
