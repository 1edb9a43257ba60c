// Package core holds the ledger domain: users, transactions, balances,
// budgets, verification tokens and the parsing rules shared by every entry
// point.
//
// This file contains the parsers for amounts and dates received from clients.
package core

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseAmount converts a whole, non-negative amount no larger than MaxAmount
// to int64.
//
// Only ASCII digits are accepted: no sign, separators or decimals. Numbers
// decoded from JSON arrive here already formatted ("500"), so "500.5" is
// rejected the same way a form value would be.
//
// Examples:
//
//	ParseAmount("500")  -> 500, nil
//	ParseAmount(" 42 ") -> 42, nil
//	ParseAmount("-3")   -> 0, ErrNotNumeric
//	ParseAmount("1e3")  -> 0, ErrNotNumeric
//	ParseAmount("1000000000000001") -> 0, ErrAmountTooLarge
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyFields
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return 0, ErrNotNumeric
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return v, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate parses client supplied dates. Dates without a zone are read in
// loc. Bare integers are taken as Unix milliseconds.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// DayTotal is the sum of amounts for one day of a month.
type DayTotal struct {
	Day         int   `json:"day"`
	TotalAmount int64 `json:"totalAmount"`
}

// CategoryTotal is the sum of amounts for one category.
type CategoryTotal struct {
	Category    string `json:"category"`
	TotalAmount int64  `json:"totalAmount"`
}

// SumAmounts adds the unsigned amounts of txs.
func SumAmounts(txs []Transaction) int64 {
	var total int64
	for _, t := range txs {
		total += t.Amount
	}
	return total
}

// SumSigned adds the signed contributions of txs.
func SumSigned(txs []Transaction) int64 {
	var total int64
	for _, t := range txs {
		total += t.Signed()
	}
	return total
}
