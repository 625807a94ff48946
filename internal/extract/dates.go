package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const (
	dateBaseConfidence = 70
	digitsAndSlash     = "0123456789/"
)

// dateOrder says how the two leading numeric components are read.
type dateOrder int

const (
	dayFirst dateOrder = iota
	monthFirst
)

// dateRule is one row of the date extractor table.
type dateRule struct {
	name    string
	pattern *regexp.Regexp
	parse   func(m []string, now time.Time) (y, mo, d int, ok bool)
	// accept can veto a match based on surrounding text
	accept func(s string, start, end int) bool
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var dateRules = []dateRule{
	{
		name:    "iso",
		pattern: regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
		},
	},
	{
		name:    "european",
		pattern: regexp.MustCompile(`\b(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{4})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			if m[2] != m[4] {
				return 0, 0, 0, false
			}
			a, b := atoi(m[1]), atoi(m[3])
			if numericOrder(a, b) != dayFirst {
				return 0, 0, 0, false
			}
			return atoi(m[5]), b, a, true
		},
	},
	{
		name:    "us",
		pattern: regexp.MustCompile(`\b(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{4})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			if m[2] != m[4] {
				return 0, 0, 0, false
			}
			a, b := atoi(m[1]), atoi(m[3])
			if numericOrder(a, b) != monthFirst {
				return 0, 0, 0, false
			}
			return atoi(m[5]), a, b, true
		},
	},
	{
		name:    "two_digit_year",
		pattern: regexp.MustCompile(`\b(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{2})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			if m[2] != m[4] {
				return 0, 0, 0, false
			}
			a, b := atoi(m[1]), atoi(m[3])
			y := 2000 + atoi(m[5])
			if numericOrder(a, b) == monthFirst {
				return y, a, b, true
			}
			return y, b, a, true
		},
	},
	{
		name:    "day_month",
		pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`),
		parse: func(m []string, now time.Time) (int, int, int, bool) {
			a, b := atoi(m[1]), atoi(m[2])
			if numericOrder(a, b) == monthFirst {
				return now.Year(), a, b, true
			}
			return now.Year(), b, a, true
		},
		accept: func(s string, start, end int) bool {
			return boundaryOK(s, start, end, digitsAndSlash, digitsAndSlash)
		},
	},
	{
		name:    "written_day_month",
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[ \t]+` + monthPattern + `\.?,?[ \t]+(\d{4})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			mo, ok := monthFromName(m[2])
			return atoi(m[3]), mo, atoi(m[1]), ok
		},
	},
	{
		name:    "written_month_day",
		pattern: regexp.MustCompile(`(?i)\b` + monthPattern + `\.?[ \t]+(\d{1,2})(?:st|nd|rd|th)?,?[ \t]+(\d{4})\b`),
		parse: func(m []string, _ time.Time) (int, int, int, bool) {
			mo, ok := monthFromName(m[1])
			return atoi(m[3]), mo, atoi(m[2]), ok
		},
	},
}

// numericOrder resolves d1/d2: day-first unless only month-first is possible.
func numericOrder(a, b int) dateOrder {
	if a <= 12 && b > 12 {
		return monthFirst
	}
	return dayFirst
}

func monthFromName(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	if len(s) > 4 {
		if mo, ok := monthNames[s[:4]]; ok {
			return mo, true
		}
	}
	if len(s) < 3 {
		return 0, false
	}
	mo, ok := monthNames[s[:3]]
	return mo, ok
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// validDate checks ranges and that the date exists on the calendar.
func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 || y > 2100 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

func dateConfidence(match string, y int) float64 {
	c := float64(dateBaseConfidence)
	if len(match) >= 8 {
		c += 15
	}
	if y >= 2020 && y <= 2030 {
		c += 10
	}
	// day and month already validated in range
	c += 5
	return capConfidence(c)
}

// DateExtractor finds calendar dates in corrected text.
type DateExtractor struct {
	now func() time.Time
}

// NewDateExtractor returns an extractor using the wall clock for year-less dates.
func NewDateExtractor() *DateExtractor {
	return &DateExtractor{now: time.Now}
}

// WithClock overrides the clock used for day/month-only dates.
func (e *DateExtractor) WithClock(now func() time.Time) *DateExtractor {
	e.now = now
	return e
}

// Extract returns deduplicated date candidates, most confident first.
func (e *DateExtractor) Extract(text string) []models.Candidate[models.DateValue] {
	now := e.now()
	var out []models.Candidate[models.DateValue]
	for _, rule := range dateRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			if rule.accept != nil && !rule.accept(text, loc[0], loc[1]) {
				continue
			}
			m := submatches(text, loc)
			y, mo, d, ok := rule.parse(m, now)
			if !ok || !validDate(y, mo, d) {
				continue
			}
			out = append(out, models.Candidate[models.DateValue]{
				Value: models.DateValue{
					DateStr: m[0],
					ISODate: fmt.Sprintf("%04d-%02d-%02d", y, mo, d),
				},
				OriginalSpan: m[0],
				Confidence:   dateConfidence(m[0], y),
			})
		}
	}
	out = dedupe(out, func(v models.DateValue) string { return v.ISODate })
	rank(out, nil)
	return out
}

// ParseDate normalizes a single date string to YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	cands := NewDateExtractor().Extract(strings.TrimSpace(s))
	if len(cands) == 0 {
		return "", false
	}
	return cands[0].Value.ISODate, true
}

func submatches(s string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}
