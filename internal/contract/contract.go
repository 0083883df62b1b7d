// Package contract describes the confidential cap-table contract: its
// operations, ABI and events. Adapters live in sub-packages.
package contract

import (
	"context"
	"errors"

	"github.com/rpggio/capvault/internal/domain/captable"
)

var (
	// ErrReadOnly is returned by writes when no signing key is configured.
	ErrReadOnly = errors.New("contract client has no signer")
	// ErrReverted is returned when the contract rejects a write.
	ErrReverted = errors.New("execution reverted")
)

// Contract is the full surface of the cap-table contract.
type Contract interface {
	captable.Reader
	captable.Writer
	GetInvestorReputation(ctx context.Context, investor string) (*captable.Reputation, error)
	GetInvestorPortfolio(ctx context.Context, investor string) ([]uint64, error)
}

// EventSource streams decoded contract events until ctx ends.
type EventSource interface {
	WatchEvents(ctx context.Context) (<-chan captable.Event, error)
}
