package shared

import "github.com/shopspring/decimal"

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// Normalize fills defaults for non-positive values
func (p Page) Normalize(defaultSize int) Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// MoneyScale is the number of decimal places stored for wallet balances, prices and bids
const MoneyScale = 2

// IsValidAmount reports whether amount is positive and fits the stored money scale
func IsValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(MoneyScale))
}
