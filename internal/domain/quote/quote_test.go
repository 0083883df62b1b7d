package quote_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/quote"
)

func neuralFlow() quote.Quoter {
	return quote.Quoter{TotalShares: 1_000_000, CurrentValuation: decimal.NewFromInt(45_000_000)}
}

func TestAmountToShares(t *testing.T) {
	q := neuralFlow()

	require.Equal(t, uint64(2222), q.AmountToShares(decimal.NewFromInt(100_000)))
	require.Equal(t, uint64(0), q.AmountToShares(decimal.Zero))
	require.Equal(t, uint64(0), q.AmountToShares(decimal.NewFromInt(-10)))
	require.Equal(t, uint64(0), q.AmountToShares(decimal.NewFromInt(44)))
	require.Equal(t, uint64(1), q.AmountToShares(decimal.NewFromInt(45)))
	require.Equal(t, uint64(2_000_000), q.AmountToShares(decimal.NewFromInt(90_000_000)))
}

func TestAmountToShares_ZeroValuation(t *testing.T) {
	q := quote.Quoter{TotalShares: 1_000_000}
	require.Equal(t, uint64(0), q.AmountToShares(decimal.NewFromInt(100_000)))
}

func TestSharesToAmount(t *testing.T) {
	q := neuralFlow()

	require.True(t, decimal.NewFromInt(99_990).Equal(q.SharesToAmount(2222)))
	require.True(t, decimal.Zero.Equal(q.SharesToAmount(0)))
	require.True(t, decimal.Zero.Equal(quote.Quoter{}.SharesToAmount(10)))

	cs := quote.Quoter{TotalShares: 800_000, CurrentValuation: decimal.NewFromInt(28_000_000)}
	require.True(t, decimal.RequireFromString("35").Equal(cs.SharesToAmount(1)))

	odd := quote.Quoter{TotalShares: 3, CurrentValuation: decimal.NewFromInt(10)}
	require.False(t, odd.SharesToAmount(1).Equal(odd.SharesToAmount(1).Floor()))
}

func TestRoundTripWithinOneShare(t *testing.T) {
	quoters := []quote.Quoter{
		neuralFlow(),
		{TotalShares: 800_000, CurrentValuation: decimal.NewFromInt(28_000_000)},
		{TotalShares: 7, CurrentValuation: decimal.NewFromInt(1_000)},
	}
	amounts := []string{"1", "45", "99.99", "100000", "123456.78", "45000000"}

	for _, q := range quoters {
		for _, a := range amounts {
			amount := decimal.RequireFromString(a)
			back := q.SharesToAmount(q.AmountToShares(amount))
			require.True(t, back.LessThanOrEqual(amount), "amount %s", a)
			require.True(t, amount.Sub(back).LessThan(q.ShareValue()), "amount %s", a)
		}
	}
}
