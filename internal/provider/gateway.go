package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const resourcesPrefix = "/resources"

// Gateway exposes provider operations in verification terms. It never retries
// on its own; Client owns the retry policy.
type Gateway struct {
	client *Client
}

func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// CreateApplicant registers a provider applicant under in.LevelName.
func (g *Gateway) CreateApplicant(ctx context.Context, in CreateApplicantInput) (*Applicant, error) {
	body := createApplicantBody{
		ExternalUserID: in.ExternalUserID,
		Email:          in.Email,
		Phone:          in.Phone,
	}
	if fi := (fixedInfo{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DOB:         in.DateOfBirth,
		Country:     in.Country,
		Nationality: in.Nationality,
	}); fi != (fixedInfo{}) {
		body.FixedInfo = &fi
	}

	var out Applicant
	err := g.client.Do(ctx, Request{
		Operation: "create_applicant",
		Method:    http.MethodPost,
		Path:      resourcesPrefix + "/applicants?" + url.Values{"levelName": {in.LevelName}}.Encode(),
		Body:      body,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, NewError(CategoryUnknown, "create_applicant", http.StatusOK, "response missing applicant id", nil)
	}
	return &out, nil
}

// IssueAccessToken requests an SDK token for userID valid for ttl.
func (g *Gateway) IssueAccessToken(ctx context.Context, userID, levelName string, ttl time.Duration) (*AccessToken, error) {
	q := url.Values{
		"userId":    {userID},
		"levelName": {levelName},
		"ttlInSecs": {strconv.Itoa(int(ttl.Seconds()))},
	}
	var out AccessToken
	err := g.client.Do(ctx, Request{
		Operation: "issue_access_token",
		Method:    http.MethodPost,
		Path:      resourcesPrefix + "/accessTokens?" + q.Encode(),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, NewError(CategoryUnknown, "issue_access_token", http.StatusOK, "response missing token", nil)
	}
	return &out, nil
}

// GetApplicantStatus reads the current review state.
func (g *Gateway) GetApplicantStatus(ctx context.Context, applicantID string) (*ApplicantStatus, error) {
	var out ApplicantStatus
	err := g.client.Do(ctx, Request{
		Operation: "get_applicant_status",
		Method:    http.MethodGet,
		Path:      resourcesPrefix + "/applicants/" + url.PathEscape(applicantID) + "/status",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetApplicant reads the full applicant record.
func (g *Gateway) GetApplicant(ctx context.Context, applicantID string) (*Applicant, error) {
	var out Applicant
	err := g.client.Do(ctx, Request{
		Operation: "get_applicant",
		Method:    http.MethodGet,
		Path:      resourcesPrefix + "/applicants/" + url.PathEscape(applicantID) + "/one",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetApplicant clears provider-side review state so the user can resubmit.
func (g *Gateway) ResetApplicant(ctx context.Context, applicantID string) error {
	return g.client.Do(ctx, Request{
		Operation: "reset_applicant",
		Method:    http.MethodPost,
		Path:      resourcesPrefix + "/applicants/" + url.PathEscape(applicantID) + "/reset",
	}, nil)
}
