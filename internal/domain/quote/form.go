package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rpggio/capvault/internal/format"
)

// Form holds the paired amount and shares inputs. Editing one field
// recomputes the other; the field being edited is stored verbatim.
type Form struct {
	quoter Quoter
	amount string
	shares string
}

// Summary is the parsed view of a form shown before submission.
type Summary struct {
	Amount    decimal.Decimal `json:"amount"`
	Shares    uint64          `json:"shares"`
	Ownership decimal.Decimal `json:"ownership"`
}

// NewForm returns an empty form priced by q.
func NewForm(q Quoter) *Form {
	return &Form{quoter: q}
}

// Quoter returns the pricing the form uses.
func (f *Form) Quoter() Quoter {
	return f.quoter
}

// Amount returns the amount text.
func (f *Form) Amount() string {
	return f.amount
}

// Shares returns the shares text.
func (f *Form) Shares() string {
	return f.shares
}

// EditAmount stores text and, when it is a non-zero number, replaces the
// shares text with the shares it buys.
func (f *Form) EditAmount(text string) {
	f.amount = text
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || amount.IsZero() {
		return
	}
	f.shares = strconv.FormatUint(f.quoter.AmountToShares(amount), 10)
}

// EditShares stores text and, when it is a non-zero integer, replaces the
// amount text with the price of that many shares. Counts beyond uint64
// leave the amount alone; Values rejects them.
func (f *Form) EditShares(text string) {
	f.shares = text
	shares, ok := parseShares(text)
	if !ok || shares.IsZero() {
		return
	}
	if shares.Sign() < 0 {
		f.amount = decimal.Zero.String()
		return
	}
	if !shares.BigInt().IsUint64() {
		return
	}
	f.amount = f.quoter.SharesToAmount(shares.BigInt().Uint64()).String()
}

// Filled reports whether both fields hold text.
func (f *Form) Filled() bool {
	return strings.TrimSpace(f.amount) != "" && strings.TrimSpace(f.shares) != ""
}

// Reset clears both fields.
func (f *Form) Reset() {
	f.amount = ""
	f.shares = ""
}

// Values parses both fields.
func (f *Form) Values() (decimal.Decimal, uint64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
	if err != nil || amount.Sign() <= 0 {
		return decimal.Zero, 0, fmt.Errorf("%w: %q", ErrInvalidAmount, f.amount)
	}
	shares, ok := parseShares(f.shares)
	if !ok || shares.Sign() <= 0 || !shares.BigInt().IsUint64() {
		return decimal.Zero, 0, fmt.Errorf("%w: %q", ErrInvalidShares, f.shares)
	}
	return amount, shares.BigInt().Uint64(), nil
}

// Summary reports the parsed amount, shares and resulting ownership.
// Unparseable fields count as zero.
func (f *Form) Summary() Summary {
	var s Summary
	if amount, err := decimal.NewFromString(strings.TrimSpace(f.amount)); err == nil {
		s.Amount = amount
	}
	if shares, ok := parseShares(f.shares); ok && shares.Sign() > 0 && shares.BigInt().IsUint64() {
		s.Shares = shares.BigInt().Uint64()
	}
	s.Ownership = format.Ownership(s.Shares, f.quoter.TotalShares)
	return s
}

// parseShares reads a share count, dropping any fractional part.
func parseShares(text string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Truncate(0), true
}
