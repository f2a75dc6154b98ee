// Package core provides the ledger domain model.
//
// This file contains the decimal amount parsing used at every boundary
// where amounts arrive as strings, and the currency helpers backed by
// go-money. Balance arithmetic never goes through binary floating point.
package core

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits an amount may carry.
const AmountScale = 2

var (
	ErrInvalidAmount   = errors.New("amount must be a valid positive number")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrAmountPrecision = errors.New("amount has more than 2 decimal places")
	ErrInvalidCurrency = errors.New("unknown currency code")
)

// ParseAmount parses a strictly positive amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs and more
// than two fractional digits are rejected rather than rounded.
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,3")  -> 12.3, nil
//	ParseAmount("0")     -> error
//	ParseAmount("1.005") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBalance parses an amount that may be zero, such as a wallet's
// initial balance. An empty string means zero.
func ParseBalance(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		if strings.HasPrefix(s, "-") {
			return decimal.Zero, ErrNegativeAmount
		}
		return decimal.Zero, ErrInvalidAmount
	}
	// decimal accepts exponents; amounts never do.
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Exponent() < -AmountScale && !d.Equal(d.Truncate(AmountScale)) {
		return decimal.Zero, ErrAmountPrecision
	}
	return d, nil
}

// FormatAmount renders d as a plain two-decimal string, the wire format
// of every amount leaving the core.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// NormalizeCurrency upper-cases code and checks it against the ISO-4217
// table shipped with go-money.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	if money.GetCurrency(code) == nil {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

// FormatMoney renders d with the currency's symbol and separators,
// e.g. "$1,234.50". Unknown currencies fall back to FormatAmount.
func FormatMoney(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return FormatAmount(d)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}
