package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"kycgate/internal/audit"
	"kycgate/internal/provider"
)

// ProviderGateway is the subset of provider operations the orchestrator uses.
type ProviderGateway interface {
	CreateApplicant(ctx context.Context, in provider.CreateApplicantInput) (*provider.Applicant, error)
	IssueAccessToken(ctx context.Context, userID, levelName string, ttl time.Duration) (*provider.AccessToken, error)
	GetApplicantStatus(ctx context.Context, applicantID string) (*provider.ApplicantStatus, error)
	GetApplicant(ctx context.Context, applicantID string) (*provider.Applicant, error)
	ResetApplicant(ctx context.Context, applicantID string) error
}

// AuditPublisher accepts lifecycle events. Emit must not block.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
