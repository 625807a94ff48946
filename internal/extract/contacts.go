package extract

import (
	"regexp"
	"strings"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const (
	emailConfidence   = 95
	phoneConfidence   = 90
	addressConfidence = 75
)

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+?1[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}`)
	addressPattern = regexp.MustCompile(streetAddress.String() + `(?:,?[ \t]+[A-Z][a-zA-Z]+(?:[ \t]+[A-Z][a-zA-Z]+)*)?(?:,?[ \t]+[A-Z]{2})?(?:[ \t]+\d{5}(?:-\d{4})?)?`)
)

// ExtractEmails finds email addresses in raw text.
func ExtractEmails(raw string) []models.Candidate[string] {
	var out []models.Candidate[string]
	for _, m := range emailPattern.FindAllString(raw, -1) {
		out = append(out, models.Candidate[string]{
			Value:        strings.ToLower(strings.TrimRight(m, ".")),
			OriginalSpan: m,
			Confidence:   emailConfidence,
		})
	}
	out = dedupe(out, strings.ToLower)
	rank(out, nil)
	return out
}

// ExtractPhones finds phone numbers in corrected text and normalizes them to digits.
func ExtractPhones(text string) []models.Candidate[string] {
	var out []models.Candidate[string]
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		if !boundaryOK(text, loc[0], loc[1], "0123456789/.", "0123456789/") {
			continue
		}
		span := text[loc[0]:loc[1]]
		digits := digitsOnly(span)
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 {
			continue
		}
		out = append(out, models.Candidate[string]{
			Value:        digits,
			OriginalSpan: span,
			Confidence:   phoneConfidence,
		})
	}
	out = dedupe(out, func(s string) string { return s })
	rank(out, nil)
	return out
}

// ExtractAddresses finds street addresses in raw text.
func ExtractAddresses(raw string) []models.Candidate[string] {
	var out []models.Candidate[string]
	for _, m := range addressPattern.FindAllString(raw, -1) {
		addr := strings.TrimRight(strings.TrimSpace(m), ".,")
		out = append(out, models.Candidate[string]{
			Value:        addr,
			OriginalSpan: m,
			Confidence:   addressConfidence,
		})
	}
	out = dedupe(out, NormalizeName)
	rank(out, nil)
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isASCIIDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
