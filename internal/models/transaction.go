package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of a transaction date.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrInvalidDate is returned when a date is not a YYYY-MM-DD calendar day.
	ErrInvalidDate = errors.New("date must be a calendar day (YYYY-MM-DD)")
)

// Transaction is a single income or expense record. Guest transactions have
// a zero ID and a nil UserID and are never written to the database.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id,omitempty"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Category  Category        `json:"category"`
	Merchant  string          `json:"merchant,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Day parses the transaction date.
func (t Transaction) Day() (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(t.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, t.Date)
	}
	return d, nil
}

// IsIncome reports whether the transaction counts towards income.
func (t Transaction) IsIncome() bool {
	return t.Category.IsIncome()
}

// Validate checks the invariants every stored transaction must hold.
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Category.Valid() {
		return ErrUnknownCategory
	}
	if _, err := t.Day(); err != nil {
		return err
	}
	return nil
}
