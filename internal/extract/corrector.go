package extract

import (
	"strings"
	"unicode"
)

// Character-level OCR confusions that are only repaired inside numeric context.
var digitLookalikes = map[rune]rune{
	'o': '0',
	'O': '0',
	'l': '1',
	'I': '1',
	'|': '1',
}

const (
	leadingTrim  = "(#["
	trailingTrim = ",;:!?)]."
)

// Correct repairs common OCR character confusions in numeric contexts.
//
// Tokens are whitespace separated and whitespace is preserved. A token is
// rewritten only when it is currency prefixed, shaped like a date, or clearly
// numeric; any other token, including ordinary words that happen to contain
// o, l or I, is left untouched. Correct(Correct(s)) == Correct(s).
func Correct(raw string) string {
	out := raw
	for i := 0; i < 4; i++ {
		next := correctPass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func correctPass(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				b.WriteString(correctToken(s[start:i]))
				start = -1
			}
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		b.WriteString(correctToken(s[start:]))
	}
	return b.String()
}

// correctToken applies the rules in order: currency, date shape, plain number.
func correctToken(tok string) string {
	lead, core, trail := splitPunct(tok)
	if core == "" {
		return tok
	}

	if fixed, ok := correctCurrency(core); ok {
		return lead + fixed + trail
	}
	if idx := strings.IndexByte(core, '$'); idx > 0 {
		// Label glued to the amount, e.g. "Total:$1O0"
		if fixed, ok := correctCurrency(core[idx:]); ok {
			return lead + core[:idx] + fixed + trail
		}
	}
	if fixed, ok := correctDateShape(core); ok {
		return lead + fixed + trail
	}
	if fixed, ok := correctNumber(core); ok {
		return lead + fixed + trail
	}
	return tok
}

func splitPunct(tok string) (lead, core, trail string) {
	core = tok
	for len(core) > 0 && strings.IndexByte(leadingTrim, core[0]) >= 0 {
		core = core[1:]
	}
	lead = tok[:len(tok)-len(core)]
	end := len(core)
	for end > 0 && strings.IndexByte(trailingTrim, core[end-1]) >= 0 {
		end--
	}
	trail = core[end:]
	core = core[:end]
	return lead, core, trail
}

// correctCurrency handles "$..." and a bare leading "S" misread for "$".
func correctCurrency(core string) (string, bool) {
	if len(core) < 2 {
		return "", false
	}
	prefix := core[0]
	if prefix != '$' && prefix != 'S' {
		return "", false
	}
	rest := core[1:]
	if !numericBody(rest, true) || countDigits(rest) == 0 {
		return "", false
	}
	if prefix == 'S' && !isDigitOrLookalike(rune(rest[0])) {
		return "", false
	}
	return "$" + mapLookalikes(rest), true
}

// correctDateShape handles d<sep>d<sep>d where both separators agree.
func correctDateShape(core string) (string, bool) {
	var sep byte
	for i := 0; i < len(core); i++ {
		if c := core[i]; c == '/' || c == '-' || c == '.' {
			sep = c
			break
		}
	}
	if sep == 0 {
		return "", false
	}
	parts := strings.Split(core, string(sep))
	if len(parts) != 3 {
		return "", false
	}
	for i, p := range parts {
		max := 2
		if i != 1 {
			max = 4
		}
		if len(p) == 0 || len(p) > max || !numericBody(p, false) || countDigits(p) == 0 {
			return "", false
		}
	}
	return mapLookalikes(core), true
}

// correctNumber handles standalone tokens that are mostly digits already.
func correctNumber(core string) (string, bool) {
	if !numericBody(core, true) {
		return "", false
	}
	digits := countDigits(core)
	letters := 0
	for _, r := range core {
		if _, ok := digitLookalikes[r]; ok {
			letters++
		}
	}
	if digits < 2 || letters == 0 || digits < letters {
		return "", false
	}
	return mapLookalikes(core), true
}

// numericBody reports whether s only holds digits, lookalikes and (optionally) separators.
func numericBody(s string, allowSeparators bool) bool {
	for _, r := range s {
		switch {
		case isDigitOrLookalike(r):
		case allowSeparators && (r == ',' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func isDigitOrLookalike(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	_, ok := digitLookalikes[r]
	return ok
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func mapLookalikes(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitLookalikes[r]; ok {
			return d
		}
		return r
	}, s)
}
