// Package analytics computes the monthly summaries, month pickers and
// filtered views shown on the transactions and dashboard pages.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"finance-tracker/internal/models"
)

// Month is a month in a specific year.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns a new Month.
func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the Month in which t occurs.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Key returns the month formatted as YYYY-MM.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label returns the month formatted as MM/YYYY.
func (m Month) Label() string {
	return fmt.Sprintf("%02d/%04d", int(m.Month), m.Year)
}

func (m Month) String() string {
	return m.Key()
}

// IsZero reports if the month is the zero value.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Contains reports whether t falls in the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Months returns the distinct months present in records, newest first, and
// the number of records whose date could not be parsed.
func Months(records []models.Transaction) ([]Month, int) {
	seen := make(map[Month]bool)
	var months []Month
	skipped := 0

	for _, r := range records {
		day, err := r.Day()
		if err != nil {
			skipped++
			continue
		}
		m := MonthOf(day)
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}

	sort.Slice(months, func(i, j int) bool { return months[i].Key() > months[j].Key() })
	return months, skipped
}

// SelectMonth returns the month in months whose key is key, or the newest
// month when key is malformed or not present. The second result is false
// only when months is empty.
func SelectMonth(months []Month, key string) (Month, bool) {
	if len(months) == 0 {
		return Month{}, false
	}
	want, err := ParseMonth(key)
	if err != nil {
		return months[0], true
	}
	for _, m := range months {
		if m == want {
			return m, true
		}
	}
	return months[0], true
}
