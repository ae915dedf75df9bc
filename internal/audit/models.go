package audit

import "time"

// Action names a verification lifecycle fact.
type Action string

const (
	ActionVerificationInitiated Action = "verification_initiated"
	ActionTokenRefreshed        Action = "access_token_refreshed"
	ActionResubmitted           Action = "verification_resubmitted"
	ActionStatusChanged         Action = "verification_status_changed"
	ActionWebhookUnmatched      Action = "webhook_unmatched"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         Action    `json:"action"`
	VerificationID string    `json:"verificationId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	FromStatus     string    `json:"fromStatus,omitempty"`
	ToStatus       string    `json:"toStatus,omitempty"`
	Source         string    `json:"source,omitempty"`
	RequestID      string    `json:"requestId,omitempty"`
	Detail         string    `json:"detail,omitempty"`
}

// Key is the partitioning key for ordered sinks: events of one verification
// stay in order.
func (e Event) Key() string {
	if e.VerificationID != "" {
		return e.VerificationID
	}
	return e.UserID
}
