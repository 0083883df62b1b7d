package submission

import "errors"

var (
	// ErrMissingInput indicates submit was attempted with an empty field.
	ErrMissingInput = errors.New("please enter both amount and shares")
	// ErrNotCancellable indicates the flow is mid-submission.
	ErrNotCancellable = errors.New("submission in progress cannot be cancelled")
	// ErrInFlight indicates another submission on the flow is running.
	ErrInFlight = errors.New("submission already in progress")
	// ErrNotAwaiting indicates there is no dispatched transaction to wait on.
	ErrNotAwaiting = errors.New("submission is not awaiting confirmation")
	// ErrFlowClosed indicates the flow was cancelled.
	ErrFlowClosed = errors.New("submission flow closed")
	// ErrFlowNotFound indicates no flow has the given id.
	ErrFlowNotFound = errors.New("submission flow not found")
	// ErrListingClosed indicates the company no longer accepts investments.
	ErrListingClosed = errors.New("investment closed")
	// ErrReverted indicates the contract rejected the transaction.
	ErrReverted = errors.New("transaction reverted")
	// ErrConfirmTimeout indicates the transaction did not settle within
	// the confirmation timeout.
	ErrConfirmTimeout = errors.New("confirmation timed out")
)
