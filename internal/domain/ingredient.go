package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	ID     uint
	Name   string
	Prices PriceLedger
	Stock  StockLedger
}

func NewIngredient(name string) (Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Ingredient{}, NewValidationError("name", "ingredient name is required")
	}
	return Ingredient{Name: name}, nil
}

func (i Ingredient) ActualPrice() decimal.Decimal {
	return i.Prices.Current()
}

func (i Ingredient) PriceAt(date time.Time) decimal.Decimal {
	return i.Prices.PriceAt(date)
}

func (i Ingredient) AvailableQuantity() decimal.Decimal {
	return i.AvailableQuantityAt(time.Now())
}

func (i Ingredient) AvailableQuantityAt(at time.Time) decimal.Decimal {
	return i.Stock.AvailableAt(at)
}
