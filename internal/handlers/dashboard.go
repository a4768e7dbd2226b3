package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"finance-tracker/internal/analytics"
	"finance-tracker/internal/export"
	"finance-tracker/internal/models"
	"finance-tracker/internal/money"
)

const (
	trendWidth  = 600
	trendHeight = 160
	trendPad    = 10
)

// Bar is one horizontal bar of a dashboard chart.
type Bar struct {
	Label      string
	Icon       string
	Color      string
	Amount     string
	Percentage float64 // width relative to the largest bar
}

// TrendPoint is one day of the daily spending line.
type TrendPoint struct {
	X, Y   float64
	Label  string
	Amount string
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Months     []analytics.Month
	Month      analytics.Month
	Empty      bool
	Income     string
	Expenses   string
	Net        string
	Negative   bool
	Flow       []Bar
	Categories []Bar
	Trend      []TrendPoint
	TrendLine  string
	Skipped    int
}

func (h *Handlers) summary(r *http.Request) ([]analytics.Month, analytics.Summary, error) {
	records, err := h.records(r.Context(), currentSession(r))
	if err != nil {
		return nil, analytics.Summary{}, err
	}
	months, _ := analytics.Months(records)
	month, _ := analytics.SelectMonth(months, r.URL.Query().Get("month"))
	s := analytics.MonthlySummary(records, month)
	if s.Skipped > 0 {
		hlog.FromRequest(r).Warn().Int("skipped", s.Skipped).Msg("transactions with unparseable dates left out of the summary")
	}
	return months, s, nil
}

// Dashboard renders the monthly metrics and charts.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	months, s, err := h.summary(r)
	if err != nil {
		h.serverError(w, r, err, "load dashboard")
		return
	}

	vm := DashboardViewModel{
		Months:   months,
		Month:    s.Month,
		Empty:    s.Empty(),
		Income:   money.Format(s.Income),
		Expenses: money.Format(s.Expenses),
		Net:      money.Format(s.Net),
		Negative: s.Net.IsNegative(),
		Skipped:  s.Skipped,
	}

	vm.Flow = bars([]barInput{
		{label: "Income", category: models.CategoryIncome, amount: s.Income},
		{label: "Expenses", color: "#ef4444", amount: s.Expenses},
	})

	inputs := make([]barInput, 0, len(s.ByCategory))
	for _, ct := range s.ByCategory {
		inputs = append(inputs, barInput{label: ct.Category.String(), category: ct.Category, amount: ct.Amount})
	}
	vm.Categories = bars(inputs)

	vm.Trend = trend(s.ByDay)
	points := make([]string, 0, len(vm.Trend))
	for _, p := range vm.Trend {
		points = append(points, fmt.Sprintf("%.1f,%.1f", p.X, p.Y))
	}
	vm.TrendLine = strings.Join(points, " ")

	h.render(w, r, http.StatusOK, "dashboard", "dashboard.html", vm)
}

// DashboardPDF downloads the dashboard of the selected month as a PDF report.
func (h *Handlers) DashboardPDF(w http.ResponseWriter, r *http.Request) {
	_, s, err := h.summary(r)
	if err != nil {
		h.serverError(w, r, err, "load dashboard")
		return
	}
	if s.Empty() {
		http.Error(w, "No transactions to report", http.StatusNotFound)
		return
	}

	data, filename, err := export.DashboardPDF(s.Month.Label(), s)
	if err != nil {
		h.serverError(w, r, err, "render pdf")
		return
	}
	hlog.FromRequest(r).Info().Str("file", filename).Msg("pdf export")
	download(w, "application/pdf", filename, data)
}

type barInput struct {
	label    string
	category models.Category
	color    string
	amount   decimal.Decimal
}

func bars(inputs []barInput) []Bar {
	top := decimal.Zero
	for _, in := range inputs {
		if in.amount.GreaterThan(top) {
			top = in.amount
		}
	}

	out := make([]Bar, 0, len(inputs))
	for _, in := range inputs {
		b := Bar{
			Label:  in.label,
			Color:  in.color,
			Amount: money.Format(in.amount),
		}
		if in.category != models.CategoryNone {
			b.Icon = in.category.Icon()
			b.Color = in.category.Color()
		}
		if top.IsPositive() {
			b.Percentage = in.amount.Div(top).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		out = append(out, b)
	}
	return out
}

// trend lays the daily totals out on the SVG viewport, left to right in day
// order with the largest total at the top.
func trend(days []analytics.DayTotal) []TrendPoint {
	if len(days) == 0 {
		return nil
	}

	top := decimal.Zero
	for _, d := range days {
		if d.Amount.GreaterThan(top) {
			top = d.Amount
		}
	}

	innerW := float64(trendWidth - 2*trendPad)
	innerH := float64(trendHeight - 2*trendPad)

	out := make([]TrendPoint, 0, len(days))
	for i, d := range days {
		x := float64(trendPad) + innerW/2
		if len(days) > 1 {
			x = float64(trendPad) + innerW*float64(i)/float64(len(days)-1)
		}
		y := float64(trendPad) + innerH
		if top.IsPositive() {
			y -= innerH * d.Amount.Div(top).InexactFloat64()
		}
		out = append(out, TrendPoint{
			X:      x,
			Y:      y,
			Label:  d.Day.Format("01/02/2006"),
			Amount: money.Format(d.Amount),
		})
	}
	return out
}
