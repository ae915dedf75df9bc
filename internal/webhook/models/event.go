package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "kycgate/pkg/domain"
)

// Outcome records what ingestion did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeDiscarded Outcome = "discarded"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Processing is the dispatch record attached to a persisted event.
type Processing struct {
	Processed     bool
	Attempts      int
	LastAttemptAt *time.Time
	Error         string
	Outcome       Outcome
}

// Event is the audit copy of one received webhook. Payload holds the raw
// bytes exactly as received.
type Event struct {
	ID                  id.WebhookEventID
	Type                EventType
	ExternalApplicantID string
	Payload             []byte
	PayloadDigest       string
	ReceivedAt          time.Time
	ExpiresAt           time.Time
	Processing          Processing
}

// NewEvent builds the audit record for a parsed payload.
func NewEvent(p *Payload, raw []byte, now time.Time, ttl time.Duration) *Event {
	return &Event{
		ID:                  id.NewWebhookEventID(),
		Type:                p.Type,
		ExternalApplicantID: p.ApplicantID,
		Payload:             append([]byte(nil), raw...),
		PayloadDigest:       Digest(raw),
		ReceivedAt:          now,
		ExpiresAt:           now.Add(ttl),
	}
}

// Digest is the hex SHA-256 of a raw body; it keys the replay ledger.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// RecordAttempt stamps the result of one dispatch.
func (e *Event) RecordAttempt(outcome Outcome, err error, at time.Time) {
	e.Processing.Attempts++
	e.Processing.LastAttemptAt = &at
	e.Processing.Outcome = outcome
	e.Processing.Processed = outcome != OutcomeFailed
	e.Processing.Error = ""
	if err != nil {
		e.Processing.Error = err.Error()
	}
}

func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.Processing.LastAttemptAt != nil {
		t := *e.Processing.LastAttemptAt
		c.Processing.LastAttemptAt = &t
	}
	return &c
}
