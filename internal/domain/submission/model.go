package submission

import "time"

// State is the lifecycle state of a submission flow.
type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateConfirmed            State = "confirmed"
	StateFailed               State = "failed"
)

// InFlight reports whether a submission is running in state s.
func (s State) InFlight() bool {
	return s == StateValidating || s == StateSubmitting || s == StateAwaitingConfirmation
}

// Terminal reports whether s ends a submission attempt.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Record is the journaled view of a flow.
type Record struct {
	ID          string    `json:"id"`
	Investor    string    `json:"investor"`
	CompanyID   uint64    `json:"company_id"`
	CompanyName string    `json:"company_name"`
	State       State     `json:"state"`
	Amount      string    `json:"amount"`
	Shares      string    `json:"shares"`
	TxHandle    string    `json:"tx_handle,omitempty"`
	Failure     string    `json:"failure,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
