// Package format renders amounts, share counts, percentages, timestamps
// and addresses as display strings. Every function is total.
package format

import (
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the fractional digit count used by AmountDefault.
const DefaultDecimals int32 = 2

var hundred = decimal.NewFromInt(100)

// Address truncates an identifier to its first 6 and last 4 characters.
func Address(id string) string {
	if id == "" {
		return ""
	}
	head := id
	if len(head) > 6 {
		head = head[:6]
	}
	tail := id
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return head + "..." + tail
}

// Amount renders value as a US dollar string with exactly decimals
// fractional digits, e.g. "$1,000,000.0".
func Amount(value decimal.Decimal, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	rounded := value.Round(decimals)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	fixed := rounded.StringFixed(decimals)
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	grouped := groupDigits(intPart)
	if decimals == 0 {
		return sign + "$" + grouped
	}
	return sign + "$" + grouped + "." + fracPart
}

// AmountDefault renders value with DefaultDecimals fractional digits.
func AmountDefault(value decimal.Decimal) string {
	return Amount(value, DefaultDecimals)
}

// Shares renders a share count as a grouped integer.
func Shares(value uint64) string {
	if value <= uint64(1<<63-1) {
		return humanize.Comma(int64(value))
	}
	return humanize.BigComma(new(big.Int).SetUint64(value))
}

// Percentage renders value with two decimals followed by "%".
func Percentage(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

// Timestamp renders seconds since the epoch as a short US date in UTC.
func Timestamp(secondsSinceEpoch int64) string {
	return time.Unix(secondsSinceEpoch, 0).UTC().Format("Jan 2, 2006")
}

// Millions renders value in millions with one decimal, e.g. "$45.0M".
func Millions(value decimal.Decimal) string {
	return "$" + value.Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
}

// Ownership returns shares as a percentage of totalShares.
func Ownership(shares, totalShares uint64) decimal.Decimal {
	if totalShares == 0 {
		return decimal.Zero
	}
	return fromUint(shares).Mul(hundred).Div(fromUint(totalShares))
}

func groupDigits(digits string) string {
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return digits
	}
	return humanize.BigComma(n)
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
