package quote

import "errors"

var (
	// ErrInvalidAmount indicates the amount field is not a positive number.
	ErrInvalidAmount = errors.New("invalid investment amount")
	// ErrInvalidShares indicates the shares field is not a positive integer.
	ErrInvalidShares = errors.New("invalid share count")
)
