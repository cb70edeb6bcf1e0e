// Package cpr validates Danish CPR numbers (personnumre).
//
// A CPR number is a birth date (DDMMYY), a sequence number whose first
// digit selects the century window, and a modulus-11 check digit.
// Numbers issued without modulus-11 control exist, so a negative result
// here does not prove a string is not a real CPR number.
package cpr

import (
	"strings"
	"time"
)

// Separators accepted inside a written CPR number.
var separators = strings.NewReplacer(" ", "", "-", "")

// Weights for the modulus-11 check over the first nine digits.
var weights = [9]int{4, 3, 2, 7, 6, 5, 4, 3, 2}

// Valid reports whether candidate is a structurally valid CPR number.
// Space and hyphen separators are stripped before checking. Valid is a
// pure function; a false result is a definitive rejection, not an error.
func Valid(candidate string) bool {
	text := separators.Replace(candidate)
	if len(text) != 10 || !allDigits(text) {
		return false
	}

	day := digits2(text[0:2])
	month := digits2(text[2:4])
	year := digits2(text[4:6])
	seq := text[6:10]

	// Coarse date check before the century is resolved. Two-digit years
	// pivot at 68, matching the date parsing the matcher layers use.
	if !validDate(pivotYear(year), month, day) {
		return false
	}

	fullYear, ok := deriveFullYear(year, seq)
	if !ok {
		return false
	}
	if !validDate(fullYear, month, day) {
		return false
	}

	return verifyModulus11(text)
}

// deriveFullYear resolves the two-digit year against the first sequence
// digit per the official century windows.
func deriveFullYear(year int, seq string) (int, bool) {
	digit7 := int(seq[0] - '0')
	switch {
	case digit7 <= 3:
		return 1900 + year, true
	case digit7 == 4 || digit7 == 9:
		if year <= 36 {
			return 2000 + year, true
		}
		return 1900 + year, true
	case digit7 >= 5 && digit7 <= 8:
		if year <= 57 {
			return 2000 + year, true
		}
		return 1800 + year, true
	default:
		return 0, false
	}
}

// verifyModulus11 checks the weighted digit sum against the tenth digit.
// A computed check digit of 10 has no single-digit representation and
// marks the number invalid outright.
func verifyModulus11(text string) bool {
	sum := 0
	for i, w := range weights {
		sum += int(text[i]-'0') * w
	}

	remainder := sum % 11
	computed := 0
	if remainder != 0 {
		computed = 11 - remainder
	}
	if computed == 10 {
		return false
	}

	return computed == int(text[9]-'0')
}

// pivotYear maps a two-digit year onto a century for the coarse date
// check: 00-68 become 2000s, 69-99 become 1900s.
func pivotYear(year int) int {
	if year <= 68 {
		return 2000 + year
	}
	return 1900 + year
}

// validDate reports whether year/month/day name a real calendar date.
func validDate(year, month, day int) bool {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && t.Month() == time.Month(month) && t.Day() == day
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func digits2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
