package models

// EventKind is the orchestrator-level meaning of a provider notification.
type EventKind string

const (
	// EventSubmitted: the applicant finished uploading and awaits review.
	EventSubmitted EventKind = "submitted"
	// EventReviewed: the provider reached a verdict.
	EventReviewed EventKind = "reviewed"
)

// ExternalEvent is what the webhook ingestor (or a status sync) hands to the
// orchestrator.
type ExternalEvent struct {
	Kind                EventKind
	ExternalApplicantID string
	InspectionID        string
	Review              *ReviewResult
	Source              string
}

// ApplyOutcome describes what ApplyExternalEvent did.
type ApplyOutcome string

const (
	OutcomeApplied   ApplyOutcome = "applied"
	OutcomeNoop      ApplyOutcome = "noop"
	OutcomeDiscarded ApplyOutcome = "discarded"
	OutcomeUnmatched ApplyOutcome = "unmatched"
)

// Sources recorded on lifecycle audit events.
const (
	SourceAPI     = "api"
	SourceWebhook = "webhook"
	SourceSync    = "sync"
	SourceSweeper = "sweeper"
)
