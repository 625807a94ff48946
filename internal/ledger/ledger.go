package ledger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// Provider supplies the ledger a document is reconciled against.
type Provider interface {
	Ledger(ctx context.Context) ([]models.LedgerEntry, error)
}

// TaskRecord is a completed task as exported by the scheduling side. A task
// done by several people lists every one of them in Staff.
type TaskRecord struct {
	ID             string          `json:"id" yaml:"id"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	CompletedDate  string          `json:"completedDate" yaml:"completed_date"`
	PropertyAbbrev string          `json:"propertyAbbrev" yaml:"property_abbrev"`
	Staff          []string        `json:"staff" yaml:"staff"`
}

// FromTasks groups tasks into one entry per staff member. A task with N
// staff contributes its full amount to each of the N entries.
func FromTasks(tasks []TaskRecord) []models.LedgerEntry {
	byStaff := make(map[string]*models.LedgerEntry)
	var order []string
	for _, t := range tasks {
		for _, name := range t.Staff {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			e, ok := byStaff[name]
			if !ok {
				e = &models.LedgerEntry{StaffName: name, TotalAmount: decimal.Zero}
				byStaff[name] = e
				order = append(order, name)
			}
			e.Tasks = append(e.Tasks, models.Task{
				ID:             t.ID,
				Amount:         t.Amount,
				CompletedDate:  t.CompletedDate,
				PropertyAbbrev: t.PropertyAbbrev,
			})
			e.TotalAmount = e.TotalAmount.Add(t.Amount)
		}
	}
	sort.Strings(order)
	out := make([]models.LedgerEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *byStaff[name])
	}
	return out
}

// fileFormat accepts either ready entries or raw tasks.
type fileFormat struct {
	Entries []models.LedgerEntry `yaml:"entries"`
	Tasks   []TaskRecord         `yaml:"tasks"`
}

// LoadFile reads a YAML ledger file.
func LoadFile(path string) ([]models.LedgerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML ledger document.
func Parse(data []byte) ([]models.LedgerEntry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	entries := append([]models.LedgerEntry(nil), f.Entries...)
	for i := range entries {
		if entries[i].TotalAmount.IsZero() && len(entries[i].Tasks) > 0 {
			for _, t := range entries[i].Tasks {
				entries[i].TotalAmount = entries[i].TotalAmount.Add(t.Amount)
			}
		}
	}
	return mergeByStaff(append(entries, FromTasks(f.Tasks)...)), nil
}

// mergeByStaff folds entries for the same person, compared case-insensitively,
// into the first one seen.
func mergeByStaff(entries []models.LedgerEntry) []models.LedgerEntry {
	index := make(map[string]int, len(entries))
	out := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		key := strings.ToLower(strings.Join(strings.Fields(e.StaffName), " "))
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, e)
			continue
		}
		out[i].Tasks = append(out[i].Tasks, e.Tasks...)
		out[i].TotalAmount = out[i].TotalAmount.Add(e.TotalAmount)
	}
	return out
}

// StaticProvider serves an in-memory ledger that can be swapped atomically.
type StaticProvider struct {
	mu      sync.RWMutex
	entries []models.LedgerEntry
}

// NewStaticProvider creates a provider holding entries.
func NewStaticProvider(entries []models.LedgerEntry) *StaticProvider {
	return &StaticProvider{entries: entries}
}

// Ledger returns a copy so callers cannot mutate the shared slice.
func (p *StaticProvider) Ledger(_ context.Context) ([]models.LedgerEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.LedgerEntry(nil), p.entries...), nil
}

// Replace swaps the whole ledger.
func (p *StaticProvider) Replace(entries []models.LedgerEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = entries
}
