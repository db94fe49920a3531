package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order.Status mirrors the last history row so listings can filter without a join.
type Order struct {
	ID        uint   `gorm:"primaryKey"`
	Reference string `gorm:"size:100;uniqueIndex;not null"`
	Status    string `gorm:"size:20;index;not null"`
	Version   int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines   []DishOrder        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderStatusEntry struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   uint      `gorm:"index;not null"`
	Status    string    `gorm:"size:20;not null"`
	ChangedAt time.Time `gorm:"not null"`
}

// DishOrder keeps the dish name and price as they were when the line was taken.
type DishOrder struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"index;not null"`
	DishID    uint            `gorm:"index;not null"`
	DishName  string          `gorm:"size:150;not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Quantity  int             `gorm:"not null"`
	Position  int             `gorm:"not null"`
	Status    string          `gorm:"size:20;index;not null"`

	History []DishOrderStatusEntry `gorm:"foreignKey:DishOrderID;constraint:OnDelete:CASCADE"`
}

type DishOrderStatusEntry struct {
	ID          uint      `gorm:"primaryKey"`
	DishOrderID uint      `gorm:"index;not null"`
	Status      string    `gorm:"size:20;not null"`
	ChangedAt   time.Time `gorm:"not null"`
}
