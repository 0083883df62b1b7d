package captable

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Value converts an investment amount into the value attached to the
// makeInvestment call. Fractional and negative amounts are rejected.
func Value(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() || !amount.Equal(amount.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s", ErrFractionalValue, amount)
	}
	return amount.BigInt(), nil
}
