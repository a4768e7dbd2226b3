package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"finance-tracker/internal/analytics"
	"finance-tracker/internal/export"
	"finance-tracker/internal/models"
	"finance-tracker/internal/money"
)

// TransactionItem represents a transaction in the list view.
type TransactionItem struct {
	models.Transaction
	Date   string
	Amount string
}

// TransactionGroup groups transactions by date.
type TransactionGroup struct {
	Title string
	Date  string
	Total decimal.Decimal
	Items []TransactionItem
}

// TransactionsViewModel is the data passed to the transactions template.
type TransactionsViewModel struct {
	Months     []analytics.Month
	Month      analytics.Month
	Categories []models.Category
	Category   models.Category
	Search     string
	Groups     []TransactionGroup
	Count      int
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Cleared    bool
	Error      string
}

// monthView is the filtered view behind both the transactions page and the
// CSV download.
type monthView struct {
	months  []analytics.Month
	filter  analytics.Filter
	records []models.Transaction
}

func (h *Handlers) monthView(r *http.Request) (monthView, error) {
	all, err := h.records(r.Context(), currentSession(r))
	if err != nil {
		return monthView{}, err
	}

	q := r.URL.Query()
	months, _ := analytics.Months(all)
	month, _ := analytics.SelectMonth(months, q.Get("month"))

	f := analytics.Filter{Month: month, Search: strings.TrimSpace(q.Get("q"))}
	if c, err := models.ParseCategory(q.Get("category")); err == nil {
		f.Category = c
	}

	return monthView{
		months:  months,
		filter:  f,
		records: f.Apply(all),
	}, nil
}

// ListTransactions renders the transactions of one month, newest first and
// grouped by day.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	view, err := h.monthView(r)
	if err != nil {
		h.serverError(w, r, err, "list transactions")
		return
	}
	vm := h.transactionsViewModel(view)
	vm.Cleared = r.URL.Query().Get("cleared") == "1"
	h.render(w, r, http.StatusOK, "transactions", "transactions.html", vm)
}

func (h *Handlers) transactionsViewModel(view monthView) TransactionsViewModel {
	vm := TransactionsViewModel{
		Months:     view.months,
		Month:      view.filter.Month,
		Categories: models.Categories(),
		Category:   view.filter.Category,
		Search:     view.filter.Search,
		Count:      len(view.records),
		Income:     decimal.Zero,
		Expenses:   decimal.Zero,
	}

	var current *TransactionGroup
	for _, t := range analytics.SortNewestFirst(view.records) {
		if t.IsIncome() {
			vm.Income = vm.Income.Add(t.Amount)
		} else {
			vm.Expenses = vm.Expenses.Add(t.Amount)
		}

		if current == nil || current.Date != t.Date {
			day, _ := t.Day()
			vm.Groups = append(vm.Groups, TransactionGroup{Date: t.Date, Title: h.formatGroupTitle(day), Total: decimal.Zero})
			current = &vm.Groups[len(vm.Groups)-1]
		}
		if !t.IsIncome() {
			current.Total = current.Total.Add(t.Amount)
		}
		current.Items = append(current.Items, TransactionItem{
			Transaction: t,
			Date:        formatDay(t),
			Amount:      money.Format(t.Amount),
		})
	}
	return vm
}

// ExportCSV downloads the filtered transactions of the selected month.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := h.monthView(r)
	if err != nil {
		h.serverError(w, r, err, "export transactions")
		return
	}
	if len(view.records) == 0 {
		http.Error(w, "No transactions to export", http.StatusNotFound)
		return
	}

	data, filename, err := export.TransactionsCSV(view.records, view.filter.Month.Label())
	if err != nil {
		h.serverError(w, r, err, "render csv")
		return
	}
	hlog.FromRequest(r).Info().Str("file", filename).Int("rows", len(view.records)).Msg("csv export")
	download(w, "text/csv; charset=utf-8", filename, data)
}

// ClearData removes every transaction of the session: the guest list for
// guests, the stored transactions and budgets for signed-in users. Signed-in
// users must confirm.
func (h *Handlers) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	s := currentSession(r)
	if s.IsGuest() {
		s.ClearGuest()
	} else {
		if r.FormValue("confirm") != "yes" {
			view, err := h.monthView(r)
			if err != nil {
				h.serverError(w, r, err, "list transactions")
				return
			}
			vm := h.transactionsViewModel(view)
			vm.Error = "Please confirm that you want to delete all of your data."
			h.render(w, r, formStatus(r), "transactions", "transactions.html", vm)
			return
		}
		if err := h.db.ClearUserData(r.Context(), s.UserID()); err != nil {
			h.serverError(w, r, err, "clear user data")
			return
		}
	}
	hlog.FromRequest(r).Info().Bool("guest", s.IsGuest()).Int64("user_id", s.UserID()).Msg("data cleared")

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Location", `{"path":"/transactions?cleared=1", "target":"#content"}`)
		return
	}
	http.Redirect(w, r, "/transactions?cleared=1", http.StatusSeeOther)
}

func download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}

// formatDay renders the date as MM/DD/YYYY, or as stored when it does not
// parse.
func formatDay(t models.Transaction) string {
	day, err := t.Day()
	if err != nil {
		return t.Date
	}
	return day.Format("01/02/2006")
}

func (h *Handlers) formatGroupTitle(date time.Time) string {
	dateStr := date.Format(models.DateLayout)
	now := h.now()

	if dateStr == now.Format(models.DateLayout) {
		return "TODAY"
	}
	if dateStr == now.AddDate(0, 0, -1).Format(models.DateLayout) {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}
