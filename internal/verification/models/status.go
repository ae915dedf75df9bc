package models

import (
	"slices"

	dErrors "kycgate/pkg/domain-errors"
)

// Status is the lifecycle position of a Verification.
type Status string

const (
	StatusInitiated        Status = "INITIATED"
	StatusPending          Status = "PENDING"
	StatusInReview         Status = "IN_REVIEW"
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusResubmitRequired Status = "RESUBMIT_REQUIRED"
	StatusExpired          Status = "EXPIRED"
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusInitiated,
		StatusPending,
		StatusInReview,
		StatusApproved,
		StatusRejected,
		StatusResubmitRequired,
		StatusExpired,
	}
}

// ActiveStatuses lists the non-terminal statuses. At most one Verification per
// user may be in one of these.
func ActiveStatuses() []Status {
	return []Status{StatusInitiated, StatusPending, StatusInReview, StatusResubmitRequired}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !slices.Contains(AllStatuses(), st) {
		return "", dErrors.New(dErrors.CodeValidation, "unknown verification status")
	}
	return st, nil
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports APPROVED, REJECTED and EXPIRED.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsActive reports INITIATED, PENDING, IN_REVIEW and RESUBMIT_REQUIRED.
func (s Status) IsActive() bool {
	return slices.Contains(ActiveStatuses(), s)
}

// TransitionTable is the immutable lifecycle graph. Build it once with
// NewTransitionTable and hand it to whoever needs to check edges; the edge set
// is never exposed for mutation.
type TransitionTable struct {
	edges map[Status][]Status
}

// NewTransitionTable builds the verification lifecycle:
//
//	INITIATED         -> PENDING
//	PENDING           -> IN_REVIEW, EXPIRED
//	IN_REVIEW         -> APPROVED, REJECTED, RESUBMIT_REQUIRED
//	RESUBMIT_REQUIRED -> PENDING
//	APPROVED, REJECTED, EXPIRED are terminal.
func NewTransitionTable() TransitionTable {
	return TransitionTable{edges: map[Status][]Status{
		StatusInitiated:        {StatusPending},
		StatusPending:          {StatusInReview, StatusExpired},
		StatusInReview:         {StatusApproved, StatusRejected, StatusResubmitRequired},
		StatusResubmitRequired: {StatusPending},
	}}
}

// IsValid is a pure membership check.
func (t TransitionTable) IsValid(from, to Status) bool {
	return slices.Contains(t.edges[from], to)
}

// Validate returns CodeInvalidTransition when the edge does not exist.
func (t TransitionTable) Validate(from, to Status) error {
	if !t.IsValid(from, to) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot transition verification from "+from.String()+" to "+to.String())
	}
	return nil
}

// Next returns a copy of the statuses reachable from from in one step.
func (t TransitionTable) Next(from Status) []Status {
	return slices.Clone(t.edges[from])
}
