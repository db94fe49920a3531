package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:150;uniqueIndex;not null"`
	CreatedAt time.Time

	Prices    []IngredientPrice `gorm:"foreignKey:IngredientID"`
	Movements []StockMovement   `gorm:"foreignKey:IngredientID"`
}

// IngredientPrice rows are never updated; a correction is a new row for the same date.
type IngredientPrice struct {
	ID            uint            `gorm:"primaryKey"`
	IngredientID  uint            `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	EffectiveDate time.Time       `gorm:"index;not null"`
	CreatedAt     time.Time
}

// StockMovement is one IN or OUT event. Stock levels are always summed from these rows.
type StockMovement struct {
	ID           uint            `gorm:"primaryKey"`
	IngredientID uint            `gorm:"index;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Unit         string          `gorm:"size:5;not null"`
	MovementType string          `gorm:"size:3;not null"`
	OccurredAt   time.Time       `gorm:"index;not null"`
	CreatedAt    time.Time
}
