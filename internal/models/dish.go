package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Dish struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:150;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Ingredients []DishIngredient `gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE"`
}

// DishIngredient is one bill-of-materials row.
type DishIngredient struct {
	ID               uint `gorm:"primaryKey"`
	DishID           uint `gorm:"index;not null"`
	IngredientID     uint `gorm:"index;not null"`
	Ingredient       Ingredient
	RequiredQuantity decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Unit             string          `gorm:"size:5;not null"`
}
