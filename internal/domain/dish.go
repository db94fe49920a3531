package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rounding decides how a fractional available/required ratio becomes a whole dish count.
type Rounding string

const (
	// RoundCeil is the default. It can overstate capacity by one dish.
	RoundCeil  Rounding = "ceil"
	RoundFloor Rounding = "floor"
)

func ParseRounding(s string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundCeil:
		return RoundCeil, nil
	case RoundFloor:
		return RoundFloor, nil
	}
	return "", NewValidationError("rounding", fmt.Sprintf("unknown rounding policy %q", s))
}

func (r Rounding) apply(d decimal.Decimal) decimal.Decimal {
	if r == RoundFloor {
		return d.Floor()
	}
	return d.Ceil()
}

type DishIngredient struct {
	Ingredient       Ingredient
	RequiredQuantity decimal.Decimal
	Unit             Unit
}

type Dish struct {
	ID          uint
	Name        string
	Price       decimal.Decimal
	Ingredients []DishIngredient
}

func (d Dish) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("name", "dish name is required")
	}
	if !d.Price.IsPositive() {
		return NewValidationError("price", "dish price must be positive")
	}
	// prices are stored with two decimals
	if !d.Price.Equal(d.Price.Round(2)) {
		return NewValidationError("price", "dish price must have at most two decimal places")
	}
	return ValidateDishIngredients(d.Ingredients)
}

func ValidateDishIngredients(items []DishIngredient) error {
	for _, di := range items {
		if !di.RequiredQuantity.IsPositive() {
			return NewValidationError("required_quantity",
				fmt.Sprintf("ingredient %d: required quantity must be positive", di.Ingredient.ID))
		}
	}
	return nil
}

// Orderable: only dishes with a positive price can be put on an order.
func (d Dish) Orderable() bool {
	return d.Price.IsPositive()
}

func (d Dish) TotalIngredientCost() decimal.Decimal {
	total := decimal.Zero
	for _, di := range d.Ingredients {
		total = total.Add(di.Ingredient.ActualPrice().Mul(di.RequiredQuantity))
	}
	return total
}

func (d Dish) TotalIngredientCostAt(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, di := range d.Ingredients {
		total = total.Add(di.Ingredient.PriceAt(date).Mul(di.RequiredQuantity))
	}
	return total
}

func (d Dish) GrossMargin() decimal.Decimal {
	return d.Price.Sub(d.TotalIngredientCost())
}

func (d Dish) GrossMarginAt(date time.Time) decimal.Decimal {
	return d.Price.Sub(d.TotalIngredientCostAt(date))
}

func (d Dish) ProducibleQuantity() int64 {
	return d.ProducibleQuantityAt(time.Now())
}

func (d Dish) ProducibleQuantityAt(at time.Time) int64 {
	return d.ProducibleQuantityWith(at, RoundCeil)
}

// ProducibleQuantityWith is bounded by the scarcest ingredient. A dish without
// ingredients, or with an ingredient in negative stock, yields 0.
func (d Dish) ProducibleQuantityWith(at time.Time, rounding Rounding) int64 {
	if len(d.Ingredients) == 0 {
		return 0
	}
	var (
		lowest int64
		first  = true
	)
	for _, di := range d.Ingredients {
		if !di.RequiredQuantity.IsPositive() {
			continue
		}
		ratio := di.Ingredient.AvailableQuantityAt(at).Div(di.RequiredQuantity)
		n := rounding.apply(ratio).IntPart()
		if first || n < lowest {
			lowest, first = n, false
		}
	}
	if first || lowest < 0 {
		return 0
	}
	return lowest
}

// Snapshot captures what an order line needs to remember about the dish.
func (d Dish) Snapshot() DishSnapshot {
	return DishSnapshot{DishID: d.ID, Name: d.Name, UnitPrice: d.Price}
}
