package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Transaction is a single trade recorded in the journal.
type Transaction struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name,omitempty"`
	Side      Side            `json:"type"`
	Date      time.Time       `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Key returns the normalized symbol used to group transactions.
func (t Transaction) Key() string {
	return SymbolKey(t.Symbol)
}

// Gross returns quantity * multiplier * price for the given class.
func (t Transaction) Gross(class AssetClass) decimal.Decimal {
	return t.Quantity.Mul(class.UnitMultiplier()).Mul(t.Price)
}

// TruncateDate normalizes a timestamp to midnight UTC.
func TruncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
