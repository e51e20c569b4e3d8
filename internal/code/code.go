// Package code checks and normalizes the identifying codes used in the book:
// account numbers, journal codes and period codes.
package code

import (
	"regexp"
	"strings"
	"time"
)

var (
	reAccountNumber = regexp.MustCompile(`^[1-9][0-9A-Z]{0,15}$`)
	reJournalCode   = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)
	rePeriodCode    = regexp.MustCompile(`^[0-9]{4}-(0[1-9]|1[0-2])$`)
)

// IsAccountNumber returns true if s matches ^[1-9][0-9A-Z]{0,15}$.
// The first digit is the account class.
func IsAccountNumber(s string) bool {
	return reAccountNumber.MatchString(s)
}

// IsJournalCode returns true if s matches ^[A-Z0-9]{2,8}$
func IsJournalCode(s string) bool {
	return reJournalCode.MatchString(s)
}

// IsPeriodCode returns true if s is a year-month code like "2024-01".
func IsPeriodCode(s string) bool {
	return rePeriodCode.MatchString(s)
}

// Normalize upper-cases s and strips separators users tend to type into codes:
// spaces, dots, dashes and underscores.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '.', '-', '_', '\t':
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// PeriodCode formats the year-month code of t.
func PeriodCode(t time.Time) string {
	return t.Format("2006-01")
}

// Class returns the class digit of an account number, or 0 when s is empty.
func Class(s string) int {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0
	}
	return int(s[0] - '0')
}
