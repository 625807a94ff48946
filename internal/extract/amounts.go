package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const amountBaseConfidence = 50

// numberPattern accepts grouped thousands or plain digits with up to two decimals.
const numberPattern = `(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`

// amountRule is one row of the amount extractor table. The groups hold the
// optional symbol, label and code; number is always required.
type amountRule struct {
	name    string
	pattern *regexp.Regexp
	symbol  int // submatch index, 0 = none
	label   int
	code    int
	number  int
	accept  func(s string, start, end int) bool

	// bare rules also skip numbers inside phone numbers and street addresses
	bare bool
}

var amountRules = []amountRule{
	{
		name:    "symbol",
		pattern: regexp.MustCompile(`([$€£])[ \t]?` + numberPattern),
		symbol:  1,
		number:  2,
		accept:  numberEndsCleanly,
	},
	{
		name: "label",
		pattern: regexp.MustCompile(`(?i)\b(grand total|total due|amount due|balance due|total|subtotal|amount|balance|payment|pay|due|sum)\b[ \t]*[:\-=]?[ \t]*([$€£])?[ \t]?` +
			numberPattern),
		label:  1,
		symbol: 2,
		number: 3,
		accept: numberEndsCleanly,
	},
	{
		name:    "bare_decimal",
		pattern: regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})\b`),
		number:  1,
		accept: func(s string, start, end int) bool {
			return boundaryOK(s, start, end, "./-", "./-")
		},
	},
	{
		name:    "code_before",
		pattern: regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD)[ \t]?` + numberPattern),
		code:    1,
		number:  2,
		accept:  numberEndsCleanly,
	},
	{
		name:    "code_after",
		pattern: regexp.MustCompile(numberPattern + `[ \t]?(USD|EUR|GBP|CAD|AUD)\b`),
		number:  1,
		code:    2,
		accept: func(s string, start, end int) bool {
			return boundaryOK(s, start, end, "0123456789.,/-", "")
		},
	},
	{
		name:    "large_integer",
		pattern: regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})+|\d{3,})\b`),
		number:  1,
		accept:  plausibleBareInteger,
		bare:    true,
	},
}

var stateCodeBefore = regexp.MustCompile(`\b[A-Z]{2},?[ \t]+$`)

func numberEndsCleanly(s string, start, end int) bool {
	if !boundaryOK(s, start, end, "", "0123456789/-") {
		return false
	}
	return !(end+1 < len(s) && s[end] == '.' && isASCIIDigit(s[end+1]))
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// plausibleBareInteger rejects years, ids and fragments of dates, times and phones.
func plausibleBareInteger(s string, start, end int) bool {
	if !boundaryOK(s, start, end, "#/-.:(0123456789", "/-:)0123456789") {
		return false
	}
	if end+1 < len(s) && s[end] == '.' && isASCIIDigit(s[end+1]) {
		return false
	}
	tok := s[start:end]
	if len(tok) == 4 && !strings.Contains(tok, ",") {
		if y := atoi(tok); y >= 1900 && y <= 2100 {
			return false
		}
	}
	// "Austin TX 78701"
	if stateCodeBefore.MatchString(s[:start]) {
		return false
	}
	// "No. 12345", "Inv 12345"
	before := strings.ToLower(strings.TrimRight(s[:start], " \t"))
	for _, p := range []string{"no.", "no", "inv", "invoice", "ref", "zip", "unit", "suite"} {
		if strings.HasSuffix(before, p) {
			return false
		}
	}
	return true
}

func amountConfidence(symbol, label, code, number string, amount decimal.Decimal) float64 {
	c := float64(amountBaseConfidence)
	switch {
	case symbol == "$":
		c += 25
	case symbol != "" || code != "":
		c += 20
	}
	if label != "" {
		c += 20
	}
	if strings.Contains(number, ".") {
		c += 5
	}
	if amount.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		c += 5
	}
	return capConfidence(c)
}

// ParseAmount parses "1,234.56" style numbers.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	cleaned = strings.TrimLeft(cleaned, "$€£ ")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount as dollars with two decimals, e.g. "$1234.56".
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// ExtractAmounts finds monetary amounts in corrected text. Candidates are
// deduplicated by two-decimal value and ordered by confidence, then amount.
func ExtractAmounts(text string) []models.Candidate[models.AmountValue] {
	var out []models.Candidate[models.AmountValue]
	contacts := append(phonePattern.FindAllStringIndex(text, -1), addressPattern.FindAllStringIndex(text, -1)...)
	for _, rule := range amountRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			if rule.accept != nil && !rule.accept(text, loc[0], loc[1]) {
				continue
			}
			if rule.bare && overlapsAny(contacts, loc[0], loc[1]) {
				continue
			}
			m := submatches(text, loc)
			amount, ok := ParseAmount(m[rule.number])
			if !ok || amount.IsNegative() {
				continue
			}
			out = append(out, models.Candidate[models.AmountValue]{
				Value:        models.AmountValue{Amount: amount, Original: m[0]},
				OriginalSpan: m[0],
				Confidence:   amountConfidence(pick(m, rule.symbol), pick(m, rule.label), pick(m, rule.code), m[rule.number], amount),
			})
		}
	}
	out = dedupe(out, func(v models.AmountValue) string { return v.Amount.StringFixed(2) })
	rank(out, func(a, b models.AmountValue) bool { return a.Amount.GreaterThan(b.Amount) })
	return out
}

func pick(m []string, idx int) string {
	if idx <= 0 || idx >= len(m) {
		return ""
	}
	return m[idx]
}
