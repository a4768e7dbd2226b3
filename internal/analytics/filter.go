package analytics

import (
	"sort"
	"strings"

	"finance-tracker/internal/models"
)

// Filter selects the transactions shown on the transactions page.
// A zero Category matches every category and an empty Search matches
// everything.
type Filter struct {
	Month    Month
	Category models.Category
	Search   string
}

// Apply returns the records matching f, preserving their order. Records
// whose date does not parse never match.
func (f Filter) Apply(records []models.Transaction) []models.Transaction {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []models.Transaction
	for _, r := range records {
		day, err := r.Day()
		if err != nil || !f.Month.Contains(day) {
			continue
		}
		if f.Category != models.CategoryNone && r.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Merchant), search) &&
			!strings.Contains(strings.ToLower(r.Notes), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortNewestFirst orders records by date descending, then ID descending.
// Guest records all have ID zero and keep their insertion order reversed.
func SortNewestFirst(records []models.Transaction) []models.Transaction {
	out := reversed(records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// SortOldestFirst orders records by date ascending, then ID ascending.
// Guest records keep their insertion order within a day.
func SortOldestFirst(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func reversed(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}
