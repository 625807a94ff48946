package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const (
	fullMatchMinScore    = 70
	partialMatchMinScore = 50
)

// amountTolerance is the largest difference still treated as equal money.
var amountTolerance = decimal.RequireFromString("0.01")

// Matcher reconciles extraction results against a ledger. It is stateless
// and safe for concurrent use.
type Matcher struct {
	log logrus.FieldLogger
}

// NewMatcher creates a Matcher logging to l, or the standard logger when nil.
func NewMatcher(l logrus.FieldLogger) *Matcher {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Matcher{log: l}
}

type scoredEntry struct {
	entry *models.LedgerEntry
	score float64
}

// Match produces a verdict for result against ledger. It never fails: missing
// input yields no_match with an explanation.
func (m *Matcher) Match(result *models.ExtractionResult, ledger []models.LedgerEntry) models.MatchVerdict {
	if result == nil {
		return noMatch("no extraction result")
	}
	if len(ledger) == 0 {
		return noMatch("ledger is empty")
	}

	var best *scoredEntry
	if result.StaffName != "" {
		best = bestByName(result.StaffName, ledger)
	}

	amount := result.TotalAmount
	if best != nil {
		name := best.entry.StaffName
		amountEqual := amount != nil && amountsEqual(*amount, best.entry.TotalAmount)

		if best.score >= fullMatchMinScore && amountEqual {
			return models.MatchVerdict{
				Status:           models.FullMatch,
				MatchedStaffName: &name,
				Details:          fmt.Sprintf("name and amount match %s (%s)", name, best.entry.TotalAmount.StringFixed(2)),
				NameScore:        best.score,
				AmountMatched:    true,
			}
		}
		if best.score >= partialMatchMinScore {
			return models.MatchVerdict{
				Status:           models.PartialMatch,
				MatchedStaffName: &name,
				Details:          discrepancy(result.StaffName, best, amount),
				NameScore:        best.score,
				AmountMatched:    amountEqual,
			}
		}
	}

	if amount != nil {
		for i := range ledger {
			if amountsEqual(*amount, ledger[i].TotalAmount) {
				name := ledger[i].StaffName
				m.log.WithFields(logrus.Fields{
					"staff":  name,
					"amount": amount.StringFixed(2),
				}).Debug("Amount-only reconciliation")
				return models.MatchVerdict{
					Status:           models.PartialMatch,
					MatchedStaffName: &name,
					Details:          fmt.Sprintf("amount matches %s but name unverified", name),
					AmountMatched:    true,
				}
			}
		}
	}

	return noMatch(fmt.Sprintf("no ledger entry matches name %q or amount %s", result.StaffName, amountString(amount)))
}

// bestByName returns the highest scoring entry; an exact match short-circuits.
func bestByName(name string, ledger []models.LedgerEntry) *scoredEntry {
	var best *scoredEntry
	for i := range ledger {
		s := NameScore(name, ledger[i].StaffName)
		if s == exactScore {
			return &scoredEntry{entry: &ledger[i], score: s}
		}
		if best == nil || s > best.score {
			best = &scoredEntry{entry: &ledger[i], score: s}
		}
	}
	return best
}

func discrepancy(extractedName string, best *scoredEntry, amount *decimal.Decimal) string {
	expected := best.entry.TotalAmount.StringFixed(2)
	switch {
	case amount == nil:
		return fmt.Sprintf("name %q resembles %s (score %.0f); no amount found, expected %s",
			extractedName, best.entry.StaffName, best.score, expected)
	case amountsEqual(*amount, best.entry.TotalAmount):
		return fmt.Sprintf("amount %s matches but name %q only resembles %s (score %.0f)",
			amount.StringFixed(2), extractedName, best.entry.StaffName, best.score)
	default:
		return fmt.Sprintf("name matches %s (score %.0f) but amount %s differs from expected %s",
			best.entry.StaffName, best.score, amount.StringFixed(2), expected)
	}
}

func amountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(amountTolerance)
}

func amountString(a *decimal.Decimal) string {
	if a == nil {
		return "none"
	}
	return a.StringFixed(2)
}

func noMatch(details string) models.MatchVerdict {
	return models.MatchVerdict{Status: models.NoMatch, Details: details}
}
