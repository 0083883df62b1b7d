package mcp

import (
	"time"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/submission"
)

type GetCompanyParams struct {
	ID uint64 `json:"id"`
}

type QuoteInvestmentParams struct {
	CompanyID uint64 `json:"company_id"`
	Amount    string `json:"amount,omitempty"`
	Shares    string `json:"shares,omitempty"`
}

type StartInvestmentParams struct {
	CompanyID uint64 `json:"company_id"`
}

type EditInvestmentParams struct {
	SubmissionID string  `json:"submission_id"`
	Amount       *string `json:"amount,omitempty"`
	Shares       *string `json:"shares,omitempty"`
}

type SubmitInvestmentParams struct {
	SubmissionID string `json:"submission_id"`
	Wait         bool   `json:"wait,omitempty"`
}

type SubmissionParams struct {
	SubmissionID string `json:"submission_id"`
}

type ListSubmissionsParams struct {
	CompanyID *uint64            `json:"company_id,omitempty"`
	States    []submission.State `json:"states,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

type CreateCompanyParams struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	TotalShares      uint64 `json:"total_shares"`
	InitialValuation string `json:"initial_valuation"`
}

type TransactionStatusParams struct {
	Handle string `json:"handle"`
}

type InvestorParams struct {
	Address string `json:"address,omitempty"`
}

type RecentActivityParams struct {
	SubmissionID string                 `json:"submission_id,omitempty"`
	CompanyID    *uint64                `json:"company_id,omitempty"`
	Type         *activity.ActivityType `json:"type,omitempty"`
	Limit        int                    `json:"limit,omitempty"`
	Offset       int                    `json:"offset,omitempty"`
}

// CompanyListing is a listing with display-formatted fields.
type CompanyListing struct {
	ID            uint64                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Sector        string                 `json:"sector"`
	Status        captable.ListingStatus `json:"status"`
	Valuation     string                 `json:"valuation"`
	Raised        string                 `json:"raised"`
	TotalShares   string                 `json:"total_shares"`
	ShareValue    string                 `json:"share_value"`
	InvestorCount uint64                 `json:"investor_count"`
	Verified      bool                   `json:"verified"`
	Active        bool                   `json:"active"`
	Owner         string                 `json:"owner"`
	Founded       string                 `json:"founded"`
}

type ListCompaniesResponse struct {
	Companies []CompanyListing `json:"companies"`
	FetchedAt time.Time        `json:"fetched_at"`
	Loading   bool             `json:"loading"`
	Error     string           `json:"error,omitempty"`
}

type CompanyResponse struct {
	Listing CompanyListing   `json:"listing"`
	Company captable.Company `json:"company"`
}

type QuoteResponse struct {
	CompanyID  uint64 `json:"company_id"`
	Amount     string `json:"amount"`
	Shares     string `json:"shares"`
	Ownership  string `json:"ownership"`
	ShareValue string `json:"share_value"`
	Display    string `json:"display"`
}

type SubmitResponse struct {
	Handle     captable.TxHandle `json:"tx_handle"`
	Submission submission.View   `json:"submission"`
	Error      string            `json:"error,omitempty"`
}

type StatusResponse struct {
	Open       bool               `json:"open"`
	Submission *submission.View   `json:"submission,omitempty"`
	Record     *submission.Record `json:"record,omitempty"`
}

type CreateCompanyResponse struct {
	Handle captable.TxHandle `json:"tx_handle"`
}

type PortfolioResponse struct {
	Address       string   `json:"address"`
	InvestmentIDs []uint64 `json:"investment_ids"`
}

type ReputationResponse struct {
	Address    string              `json:"address"`
	Reputation captable.Reputation `json:"reputation"`
}
