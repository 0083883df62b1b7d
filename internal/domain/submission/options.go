package submission

import "time"

// DefaultPollInterval is the minimum gap between confirmation polls.
const DefaultPollInterval = 2 * time.Second

// Options tunes confirmation polling.
type Options struct {
	// ConfirmTimeout bounds how long a dispatched transaction is watched
	// before the flow fails; zero watches until the service is closed.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// ListOptions filters journaled submissions.
type ListOptions struct {
	Investor  string
	CompanyID *uint64
	States    []State
	Limit     int
	Offset    int
}
