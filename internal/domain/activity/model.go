package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeSubmissionStarted   ActivityType = "submission_started"
	TypeStateTransition     ActivityType = "state_transition"
	TypeSubmissionFailed    ActivityType = "submission_failed"
	TypeSubmissionConfirmed ActivityType = "submission_confirmed"
	TypeCompanyCreated      ActivityType = "company_created"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	Investor     string       `json:"investor"`
	SubmissionID string       `json:"submission_id,omitempty"`
	CompanyID    uint64       `json:"company_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
