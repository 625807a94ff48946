package models

import (
	"github.com/shopspring/decimal"
)

// Task is a completed unit of work that a staff member expects to be paid for.
type Task struct {
	ID             string          `json:"id" yaml:"id"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	CompletedDate  string          `json:"completedDate" yaml:"completed_date"`
	PropertyAbbrev string          `json:"propertyAbbrev" yaml:"property_abbrev"`
}

// LedgerEntry is the expected payable for one staff member over a period.
type LedgerEntry struct {
	StaffName   string          `json:"staffName" yaml:"staff_name"`
	Tasks       []Task          `json:"tasks" yaml:"tasks"`
	TotalAmount decimal.Decimal `json:"totalAmount" yaml:"total_amount"`
}

// MatchStatus is the trust tier of a reconciliation.
type MatchStatus string

const (
	FullMatch    MatchStatus = "full_match"
	PartialMatch MatchStatus = "partial_match"
	NoMatch      MatchStatus = "no_match"
	Pending      MatchStatus = "pending"
)

// MatchVerdict is the outcome of reconciling one invoice against the ledger.
type MatchVerdict struct {
	Status           MatchStatus `json:"status"`
	MatchedStaffName *string     `json:"matchedStaffName"`
	Details          string      `json:"details"`
	NameScore        float64     `json:"nameScore"`
	AmountMatched    bool        `json:"amountMatched"`
}
