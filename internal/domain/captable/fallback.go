package captable

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderOwner is the owner and investor address used by the
// built-in data set.
const PlaceholderOwner = "0x..."

// FallbackCompanies returns the built-in company data set, stamped with now.
func FallbackCompanies(now time.Time) []Company {
	return []Company{
		{
			ID:               1,
			Name:             "NeuralFlow AI",
			Description:      "Advanced AI solutions for enterprise",
			TotalShares:      1_000_000,
			CurrentValuation: decimal.NewFromInt(45_000_000),
			TotalRaised:      decimal.NewFromInt(12_500_000),
			InvestorCount:    127,
			IsActive:         true,
			IsVerified:       true,
			Owner:            PlaceholderOwner,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               2,
			Name:             "CryptoSecure",
			Description:      "Next-generation cybersecurity platform",
			TotalShares:      800_000,
			CurrentValuation: decimal.NewFromInt(28_000_000),
			TotalRaised:      decimal.NewFromInt(8_200_000),
			InvestorCount:    89,
			IsActive:         true,
			IsVerified:       true,
			Owner:            PlaceholderOwner,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
}

// FallbackInvestments returns the built-in investment data set.
func FallbackInvestments(now time.Time) []Investment {
	return []Investment{
		{
			ID:        1,
			Amount:    decimal.NewFromInt(100_000),
			Shares:    2222,
			Valuation: decimal.NewFromInt(45_000_000),
			Investor:  PlaceholderOwner,
			Timestamp: now,
			IsActive:  true,
		},
	}
}

// FallbackSource serves the built-in data set. It is used when no
// contract is configured.
type FallbackSource struct {
	Now func() time.Time
}

func (s FallbackSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FetchCompanies returns the built-in companies.
func (s FallbackSource) FetchCompanies(ctx context.Context) ([]Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FallbackCompanies(s.now()), nil
}

// FetchInvestments returns the built-in investments.
func (s FallbackSource) FetchInvestments(ctx context.Context) ([]Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FallbackInvestments(s.now()), nil
}
