package captable

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a fundraising entity as reported by the cap-table contract.
type Company struct {
	ID               uint64          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	TotalShares      uint64          `json:"total_shares"`
	CurrentValuation decimal.Decimal `json:"current_valuation"`
	TotalRaised      decimal.Decimal `json:"total_raised"`
	InvestorCount    uint64          `json:"investor_count"`
	IsActive         bool            `json:"is_active"`
	IsVerified       bool            `json:"is_verified"`
	Owner            string          `json:"owner"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Investment is a single investor's stake in a company.
type Investment struct {
	ID        uint64          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Shares    uint64          `json:"shares"`
	Valuation decimal.Decimal `json:"valuation"`
	Investor  string          `json:"investor"`
	Timestamp time.Time       `json:"timestamp"`
	IsActive  bool            `json:"is_active"`
}

// Reputation is the contract's track record for one investor.
type Reputation struct {
	Score            uint64    `json:"score"`
	TotalInvestments uint64    `json:"total_investments"`
	SuccessfulExits  uint64    `json:"successful_exits"`
	IsVerified       bool      `json:"is_verified"`
	LastUpdated      time.Time `json:"last_updated"`
}

// TxHandle identifies a dispatched write (a transaction hash).
type TxHandle string

// TxStatus reports how far a dispatched write has progressed.
type TxStatus struct {
	Handle        TxHandle `json:"handle"`
	Confirming    bool     `json:"confirming"`
	Final         bool     `json:"final"`
	Reverted      bool     `json:"reverted"`
	Confirmations uint64   `json:"confirmations"`
	Events        []Event  `json:"events,omitempty"`
}

// EventKind names a contract event.
type EventKind string

const (
	EventCompanyCreated EventKind = "CompanyCreated"
	EventInvestmentMade EventKind = "InvestmentMade"
)

// Event is a decoded contract event. Account is the owner for
// CompanyCreated and the investor for InvestmentMade.
type Event struct {
	Kind         EventKind `json:"kind"`
	CompanyID    uint64    `json:"company_id"`
	InvestmentID uint64    `json:"investment_id,omitempty"`
	Account      string    `json:"account"`
	Name         string    `json:"name,omitempty"`
	Amount       uint64    `json:"amount,omitempty"`
	Handle       TxHandle  `json:"handle,omitempty"`
}

// CreateCompanyRequest describes a createCompany write.
type CreateCompanyRequest struct {
	Name             string
	Description      string
	TotalShares      uint64
	InitialValuation decimal.Decimal
}

// InvestmentRequest describes a makeInvestment write. The encrypted
// payloads and proof are opaque and passed through unmodified.
type InvestmentRequest struct {
	CompanyID       uint64
	Amount          decimal.Decimal
	Shares          uint64
	EncryptedAmount []byte
	EncryptedShares []byte
	Proof           []byte
}

// Snapshot is an immutable view of companies and investments.
type Snapshot struct {
	Companies   []Company    `json:"companies"`
	Investments []Investment `json:"investments"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// ListingStatus is the fundraising stage shown next to a company.
type ListingStatus string

const (
	ListingOpen    ListingStatus = "open"
	ListingClosing ListingStatus = "closing"
	ListingClosed  ListingStatus = "closed"
)

// Listing decorates a company with its sector and fundraising stage.
type Listing struct {
	Company Company       `json:"company"`
	Sector  string        `json:"sector"`
	Status  ListingStatus `json:"status"`
}
