package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finance-tracker/internal/models"
)

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category models.Category
	Amount   decimal.Decimal
}

// DayTotal is the expense total of one calendar day.
type DayTotal struct {
	Day    time.Time
	Amount decimal.Decimal
}

// Summary is the dashboard data for one month.
type Summary struct {
	Month      Month
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Net        decimal.Decimal
	ByCategory []CategoryTotal // descending by amount
	ByDay      []DayTotal      // ascending by day
	Skipped    int             // records dropped because their date did not parse
}

// Empty reports whether the month has no transactions at all.
func (s Summary) Empty() bool {
	return s.Income.IsZero() && s.Expenses.IsZero() && len(s.ByCategory) == 0
}

// MonthlySummary totals the records falling in month. Income records count
// towards Income only; every other category is an expense and is also
// grouped by category and by day. Records with unparseable dates are
// counted in Skipped and otherwise ignored.
func MonthlySummary(records []models.Transaction, month Month) Summary {
	s := Summary{
		Month:    month,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Net:      decimal.Zero,
	}

	catIndex := make(map[models.Category]int)
	dayIndex := make(map[time.Time]int)

	for _, r := range records {
		day, err := r.Day()
		if err != nil {
			s.Skipped++
			continue
		}
		if !month.Contains(day) {
			continue
		}

		if r.IsIncome() {
			s.Income = s.Income.Add(r.Amount)
			continue
		}

		s.Expenses = s.Expenses.Add(r.Amount)

		if i, ok := catIndex[r.Category]; ok {
			s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(r.Amount)
		} else {
			catIndex[r.Category] = len(s.ByCategory)
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: r.Category, Amount: r.Amount})
		}

		if i, ok := dayIndex[day]; ok {
			s.ByDay[i].Amount = s.ByDay[i].Amount.Add(r.Amount)
		} else {
			dayIndex[day] = len(s.ByDay)
			s.ByDay = append(s.ByDay, DayTotal{Day: day, Amount: r.Amount})
		}
	}

	s.Net = s.Income.Sub(s.Expenses)

	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Amount.GreaterThan(s.ByCategory[j].Amount)
	})
	sort.Slice(s.ByDay, func(i, j int) bool {
		return s.ByDay[i].Day.Before(s.ByDay[j].Day)
	})

	return s
}
