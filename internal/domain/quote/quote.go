// Package quote converts between an investment amount and a share count
// at a company's current valuation.
package quote

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Quoter prices shares for one company.
type Quoter struct {
	TotalShares      uint64
	CurrentValuation decimal.Decimal
}

// AmountToShares returns the whole number of shares amount buys, rounded
// down. Amounts above the valuation are not capped.
func (q Quoter) AmountToShares(amount decimal.Decimal) uint64 {
	if amount.Sign() <= 0 || q.CurrentValuation.Sign() <= 0 || q.TotalShares == 0 {
		return 0
	}
	// multiply first so the quotient is exact before flooring
	quo, _ := amount.Mul(fromUint(q.TotalShares)).QuoRem(q.CurrentValuation, 0)
	n := quo.BigInt()
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}

// SharesToAmount returns the price of shares. The result is not rounded.
func (q Quoter) SharesToAmount(shares uint64) decimal.Decimal {
	if shares == 0 || q.TotalShares == 0 || q.CurrentValuation.Sign() <= 0 {
		return decimal.Zero
	}
	return fromUint(shares).Mul(q.CurrentValuation).Div(fromUint(q.TotalShares))
}

// ShareValue is the price of one share. A round trip through
// AmountToShares and SharesToAmount loses less than this.
func (q Quoter) ShareValue() decimal.Decimal {
	return q.SharesToAmount(1)
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
