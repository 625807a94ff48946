package extract

import (
	"regexp"
	"strings"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// nameRule is one row of the name extractor table.
type nameRule struct {
	name       string
	pattern    *regexp.Regexp
	kind       models.NameType
	confidence func(name string) float64
}

const capitalWord = `[A-Z][a-zA-Z'\-]*\.?`

const streetSuffix = `(?:St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard|Ln|Lane|Dr|Drive|Ct|Court|Way|Pl|Place|Ter|Terrace|Cir|Circle|Pkwy|Hwy)\b\.?`

var streetAddress = regexp.MustCompile(`\b\d{1,5}[ \t]+(?:[A-Z][a-zA-Z]*\.?[ \t]+){1,3}` + streetSuffix)

func fixed(c float64) func(string) float64 {
	return func(string) float64 { return c }
}

var nameRules = []nameRule{
	{
		name: "staff_label",
		pattern: regexp.MustCompile(`(?i:\b(?:staff(?:[ \t]+name)?|contractor|name|from|billed[ \t]+by|bill[ \t]+from|submitted[ \t]+by|worker|technician|cleaner|employee|payee|prepared[ \t]+by))[ \t]*[:\-][ \t]*(` +
			capitalWord + `(?:[ \t]+` + capitalWord + `){0,3})`),
		kind:       models.NameStaff,
		confidence: fixed(90),
	},
	{
		name:       "honorific",
		pattern:    regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr)\.?[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){0,2})`),
		kind:       models.NameStaff,
		confidence: fixed(80),
	},
	{
		name: "property_label",
		pattern: regexp.MustCompile(`(?im:\b(?:property(?:[ \t]+name)?|location|site|job[ \t]+site|service[ \t]+address|unit)[ \t]*[:\-][ \t]*([^\n]+?)[ \t]*$)`),
		kind:       models.NameProperty,
		confidence: fixed(85),
	},
	{
		name:       "street_address",
		pattern:    regexp.MustCompile(`(` + streetAddress.String() + `)`),
		kind:       models.NameProperty,
		confidence: fixed(70),
	},
	{
		name:    "capitalized_sequence",
		pattern: regexp.MustCompile(`\b([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2})\b`),
		kind:    models.NameUnknown,
		confidence: func(name string) float64 {
			if len(strings.Fields(name)) >= 3 {
				return 55
			}
			return 50
		},
	},
}

// stopWords are capitalised words that start or fill document boilerplate, not names.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`invoice total subtotal amount due date balance payment pay paid
		bill billed to from for the and of thank thanks you your please description item items qty quantity
		rate price tax hours hour service services cleaning property address phone email tel fax
		number no page terms net receipt statement period week month year name staff contractor
		street st avenue ave road rd suite unit po box city state zip usd notes note memo signature
		january february march april may june july august september october november december
		monday tuesday wednesday thursday friday saturday sunday mr mrs ms dr miss`) {
		stopWords[w] = struct{}{}
	}
}

func isStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(strings.Trim(w, ".,:;'-"))]
	return ok
}

// cleanName trims trailing stop words from a labelled name, e.g. "Mike Ross Date".
func cleanName(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 && isStopWord(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,")
}

// ExtractNames finds person and property names. It must run on the raw,
// uncorrected text: character correction is tuned for numbers.
func ExtractNames(raw string) []models.Candidate[models.NameValue] {
	var out []models.Candidate[models.NameValue]
	addresses := addressPattern.FindAllStringIndex(raw, -1)
	for _, rule := range nameRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(raw, -1) {
			if rule.kind == models.NameStaff && precededByOrgWord(raw, loc[0]) {
				continue
			}
			m := submatches(raw, loc)
			name := strings.TrimSpace(m[1])
			// "Maple Avenue" in "45 Maple Avenue" is a street, not a person.
			if rule.kind == models.NameUnknown && overlapsAny(addresses, loc[0], loc[1]) {
				continue
			}
			switch rule.kind {
			case models.NameProperty:
				name = strings.TrimRight(name, ".,;")
			default:
				name = cleanName(name)
				if name == "" || isStopWord(strings.Fields(name)[0]) {
					continue
				}
			}
			if rule.kind == models.NameUnknown && (anyStopWord(name) || len(strings.Fields(name)) < 2) {
				continue
			}
			if name == "" {
				continue
			}
			out = append(out, models.Candidate[models.NameValue]{
				Value:        models.NameValue{Name: name, Type: rule.kind},
				OriginalSpan: m[0],
				Confidence:   rule.confidence(name),
			})
		}
	}
	out = dedupe(out, func(v models.NameValue) string { return NormalizeName(v.Name) })
	rank(out, nil)
	return out
}

// precededByOrgWord catches "Property Name:", "Company Name:" and similar labels.
func precededByOrgWord(raw string, start int) bool {
	before := strings.Fields(raw[:start])
	if len(before) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimRight(before[len(before)-1], ":")) {
	case "property", "company", "business", "client", "customer", "site", "building":
		return true
	}
	return false
}

func anyStopWord(name string) bool {
	for _, w := range strings.Fields(name) {
		if isStopWord(w) {
			return true
		}
	}
	return false
}

// NormalizeName lower-cases and collapses whitespace for comparisons.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
