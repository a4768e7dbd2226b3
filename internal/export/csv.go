// Package export renders the downloadable CSV and PDF files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"finance-tracker/internal/analytics"
	"finance-tracker/internal/models"
	"finance-tracker/internal/money"
)

var csvHeader = []string{"Date", "Amount ($)", "Category", "Merchant", "Notes"}

// SafeLabel turns a month label such as "03/2024" into "03-2024" for use in
// file names.
func SafeLabel(label string) string {
	return strings.ReplaceAll(label, "/", "-")
}

// TransactionsCSV renders records oldest first as CSV and returns the file
// name to download it under. Records with unparseable dates are skipped.
func TransactionsCSV(records []models.Transaction, label string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, "", err
	}

	for _, r := range analytics.SortOldestFirst(records) {
		day, err := r.Day()
		if err != nil {
			continue
		}
		row := []string{
			day.Format("01/02/2006"),
			money.Format(r.Amount),
			r.Category.String(),
			r.Merchant,
			r.Notes,
		}
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), fmt.Sprintf("Transactions_%s.csv", SafeLabel(label)), nil
}
