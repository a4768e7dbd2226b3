package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"finance-tracker/internal/models"
	"finance-tracker/internal/money"
)

// EntryFormViewModel is the data passed to the add-entry form template.
type EntryFormViewModel struct {
	Date       string
	Amount     string
	Category   models.Category
	Merchant   string
	Notes      string
	Categories []models.Category
	Error      string
	Saved      bool
}

func (h *Handlers) newEntryForm() EntryFormViewModel {
	return EntryFormViewModel{
		Date:       h.now().Format(models.DateLayout),
		Categories: models.Categories(),
	}
}

// NewEntryForm renders the form to add a transaction.
func (h *Handlers) NewEntryForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "add", "entry.html", h.newEntryForm())
}

// CreateEntry validates the add-entry form and stores the transaction: in
// the database for signed-in users, in the session for guests.
func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	vm := h.newEntryForm()

	tx, err := parseEntryForm(r)
	vm.Date = r.FormValue("date")
	vm.Amount = r.FormValue("amount")
	vm.Category = tx.Category
	vm.Merchant = r.FormValue("merchant")
	vm.Notes = r.FormValue("notes")
	if err != nil {
		vm.Error = entryErrorMessage(err)
		h.render(w, r, formStatus(r), "add", "entry.html", vm)
		return
	}

	s := currentSession(r)
	if s.IsGuest() {
		s.AddGuestTransaction(tx)
	} else if _, err := h.db.AddTransaction(r.Context(), s.UserID(), tx); err != nil {
		h.serverError(w, r, err, "add transaction")
		return
	}
	hlog.FromRequest(r).Debug().Bool("guest", s.IsGuest()).Str("category", tx.Category.String()).Msg("transaction saved")

	// Keep the date and amount for quick repeat entries.
	saved := h.newEntryForm()
	saved.Date = tx.Date
	saved.Amount = money.Input(tx.Amount)
	saved.Saved = true
	h.render(w, r, http.StatusOK, "add", "entry.html", saved)
}

var errNoCategory = errors.New("no category selected")

func parseEntryForm(r *http.Request) (models.Transaction, error) {
	var tx models.Transaction
	if err := r.ParseForm(); err != nil {
		return tx, err
	}

	tx.Merchant = strings.TrimSpace(r.FormValue("merchant"))
	tx.Notes = strings.TrimSpace(r.FormValue("notes"))

	date := strings.TrimSpace(r.FormValue("date"))
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return tx, models.ErrInvalidDate
	}
	tx.Date = date

	if strings.TrimSpace(r.FormValue("category")) == "" {
		return tx, errNoCategory
	}
	category, err := models.ParseCategory(r.FormValue("category"))
	if err != nil {
		return tx, err
	}
	tx.Category = category

	amount, err := money.Parse(r.FormValue("amount"))
	if err != nil {
		return tx, err
	}
	tx.Amount = amount

	return tx, nil
}

func entryErrorMessage(err error) string {
	switch {
	case errors.Is(err, errNoCategory), errors.Is(err, models.ErrUnknownCategory):
		return "Please select a category."
	case errors.Is(err, models.ErrInvalidAmount):
		return "Enter a valid amount greater than 0 (example: 12.50)."
	case errors.Is(err, models.ErrInvalidDate):
		return "Enter a valid date."
	}
	return "Invalid form submission."
}
