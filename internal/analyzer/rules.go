package analyzer

import (
	"net"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mkaltoft/scrambletron/internal/cpr"
)

// DefaultRecognizers returns the built-in recognizer set, tuned for
// Danish text. Weak patterns carry low scores on purpose: context
// words or validators are what promote them.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		{
			Name:   "dk_ssn",
			Entity: "DK_SSN",
			Patterns: []Pattern{
				{Name: "cpr compact", Regexp: regexp.MustCompile(`\b[0-9]{10}\b`), Score: 0.05},
				{Name: "cpr grouped", Regexp: regexp.MustCompile(`\b([0-9]{6})([0-9]{4})\b`), Score: 0.05},
				{Name: "cpr separated", Regexp: regexp.MustCompile(`\b([0-9]{6})[-\s]([0-9]{4})\b`), Score: 0.5},
			},
			Context:  []string{"cpr", "cpr-nummer", "cpr nummer", "cpr-nr.", "cpr nr.", "personnummer"},
			Validate: cpr.Valid,
		},
		{
			Name:   "credit_card",
			Entity: "CREDIT_CARD",
			Patterns: []Pattern{
				{
					Name:   "card number",
					Regexp: regexp.MustCompile(`\b(?:4[0-9]{3}|5[1-5][0-9]{2}|6(?:011|5[0-9]{2})|3[47][0-9]{2})[- ]?[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{3,4}\b`),
					Score:  0.3,
				},
			},
			Context:  []string{"kreditkort", "dankort", "kortnummer", "visa", "mastercard"},
			Validate: luhnValid,
		},
		{
			Name:   "dk_driver_license",
			Entity: "DK_DRIVER_LICENSE",
			Patterns: []Pattern{
				{Name: "license number", Regexp: regexp.MustCompile(`\b[0-9]{8}\b`), Score: 0.05},
			},
			Context: []string{"kørekort", "kørekortnummer"},
		},
		{
			Name:   "phone_number",
			Entity: "PHONE_NUMBER",
			Patterns: []Pattern{
				{
					Name:   "with country code",
					Regexp: regexp.MustCompile(`(?:\+45|\b0045)[ .\-]?[2-9][0-9](?:[ .\-]?[0-9]{2}){3}\b`),
					Score:  0.4,
				},
				{
					Name:   "spaced pairs",
					Regexp: regexp.MustCompile(`\b[2-9][0-9] [0-9]{2} [0-9]{2} [0-9]{2}\b`),
					Score:  0.3,
				},
			},
			Context: []string{"tlf", "tlf.", "telefon", "mobil", "ring"},
		},
		{
			Name:   "email_address",
			Entity: "EMAIL_ADDRESS",
			Patterns: []Pattern{
				{
					Name:   "email",
					Regexp: regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
					Score:  0.5,
				},
			},
			Context:  []string{"email", "e-mail", "mail"},
			Validate: emailValid,
		},
		{
			Name:   "ip_address",
			Entity: "IP_ADDRESS",
			Patterns: []Pattern{
				{
					Name:   "ipv4",
					Regexp: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
					Score:  0.6,
				},
			},
			Context:  []string{"ip", "ip-adresse"},
			Validate: ipValid,
		},
		{
			Name:   "date_time",
			Entity: "DATE_TIME",
			Patterns: []Pattern{
				{
					Name:   "numeric date",
					Regexp: regexp.MustCompile(`\b[0-9]{1,2}[./-][0-9]{1,2}[./-](?:[0-9]{4}|[0-9]{2})\b`),
					Score:  0.6,
				},
				{
					Name:   "danish month",
					Regexp: regexp.MustCompile(`(?i)\b[0-9]{1,2}\.?\s(?:januar|februar|marts|april|maj|juni|juli|august|september|oktober|november|december)\s[0-9]{4}\b`),
					Score:  0.6,
				},
			},
			Context: []string{"dato", "født", "fødselsdato"},
		},
	}
}

var cardSeparators = strings.NewReplacer(" ", "", "-", "")

// luhnValid reports whether a card number candidate passes the Luhn
// check after separators are stripped.
func luhnValid(candidate string) bool {
	digits := cardSeparators.Replace(candidate)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

func emailValid(candidate string) bool {
	_, err := mail.ParseAddress(candidate)
	return err == nil
}

func ipValid(candidate string) bool {
	return net.ParseIP(candidate) != nil
}
