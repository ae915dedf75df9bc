package provider

// CreateApplicantInput is the local view of a new provider applicant.
type CreateApplicantInput struct {
	ExternalUserID string
	LevelName      string
	Email          string
	Phone          string
	FirstName      string
	LastName       string
	DateOfBirth    string
	Country        string
	Nationality    string
}

type createApplicantBody struct {
	ExternalUserID string     `json:"externalUserId"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	FixedInfo      *fixedInfo `json:"fixedInfo,omitempty"`
}

type fixedInfo struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DOB         string `json:"dob,omitempty"`
	Country     string `json:"country,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// Applicant is the provider's applicant record.
type Applicant struct {
	ID             string  `json:"id"`
	CreatedAt      string  `json:"createdAt"`
	InspectionID   string  `json:"inspectionId"`
	ExternalUserID string  `json:"externalUserId"`
	LevelName      string  `json:"levelName"`
	Email          string  `json:"email"`
	Review         *Review `json:"review,omitempty"`
}

// AccessToken is a short-lived SDK token for the end user.
type AccessToken struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Review is the provider's review block shared by status and applicant reads.
type Review struct {
	ReviewStatus string        `json:"reviewStatus"`
	CreateDate   string        `json:"createDate,omitempty"`
	ReviewDate   string        `json:"reviewDate,omitempty"`
	LevelName    string        `json:"levelName,omitempty"`
	AttemptCnt   int           `json:"attemptCnt,omitempty"`
	ReviewResult *ReviewResult `json:"reviewResult,omitempty"`
}

// ApplicantStatus is the response of the status endpoint.
type ApplicantStatus = Review

// ReviewResult is the provider verdict.
type ReviewResult struct {
	ReviewAnswer      string   `json:"reviewAnswer"`
	RejectLabels      []string `json:"rejectLabels,omitempty"`
	ReviewRejectType  string   `json:"reviewRejectType,omitempty"`
	ModerationComment string   `json:"moderationComment,omitempty"`
	ClientComment     string   `json:"clientComment,omitempty"`
}

// Review status values reported by the provider.
const (
	ReviewStatusInit       = "init"
	ReviewStatusPending    = "pending"
	ReviewStatusPrechecked = "prechecked"
	ReviewStatusQueued     = "queued"
	ReviewStatusCompleted  = "completed"
	ReviewStatusOnHold     = "onHold"
)
