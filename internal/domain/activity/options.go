package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	SubmissionID string
	CompanyID    *uint64
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
