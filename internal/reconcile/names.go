package reconcile

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	exactScore       = 100
	containmentScore = 70
	overlapMaxScore  = 60

	// tokens shorter than this only match exactly or as initials
	fuzzyMinLen     = 4
	fuzzyMinSimilar = 0.8
)

// foldName lower-cases and strips accents and punctuation.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == ',', r == '.':
			return ' '
		default:
			return -1
		}
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// NameScore rates how well an extracted name matches a ledger name, 0-100.
//
//	exact (case-insensitive)          100
//	either contains the other's words  70
//	token overlap  matched/max(len) * 60
func NameScore(extracted, ledger string) float64 {
	a, b := foldName(extracted), foldName(ledger)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exactScore
	}
	if containsWords(a, b) || containsWords(b, a) {
		return containmentScore
	}

	at, bt := tokens(a), tokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}
	used := make([]bool, len(bt))
	matched := 0
	for _, x := range at {
		for j, y := range bt {
			if used[j] || !tokensMatch(x, y) {
				continue
			}
			used[j] = true
			matched++
			break
		}
	}
	longest := len(at)
	if len(bt) > longest {
		longest = len(bt)
	}
	return float64(matched) / float64(longest) * overlapMaxScore
}

// containsWords reports whether sub appears in s on word boundaries, so "ed"
// is not found in "fred smith". Both must already be folded.
func containsWords(s, sub string) bool {
	return strings.Contains(" "+s+" ", " "+sub+" ")
}

func tokens(s string) []string {
	return strings.Fields(s)
}

// tokensMatch accepts equal tokens, an initial against a full token, or a
// close spelling of a longer token.
func tokensMatch(x, y string) bool {
	if x == y {
		return true
	}
	xr, yr := []rune(x), []rune(y)
	if len(xr) == 1 || len(yr) == 1 {
		return xr[0] == yr[0]
	}
	if len(xr) < fuzzyMinLen || len(yr) < fuzzyMinLen {
		return false
	}
	return levenshtein.Similarity(x, y, nil) >= fuzzyMinSimilar
}
