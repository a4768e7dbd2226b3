package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly spending target for one category.
type Budget struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Month     string          `json:"month"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
