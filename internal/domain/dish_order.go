package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DishSnapshot is frozen when the line is created; later dish price or name changes do
// not reach existing lines.
type DishSnapshot struct {
	DishID    uint
	Name      string
	UnitPrice decimal.Decimal
}

// DishOrder is one line of an order. It refers to its order by id only.
type DishOrder struct {
	ID       uint
	OrderID  uint
	Dish     DishSnapshot
	Quantity int
	history  StatusHistory
}

// NewDishOrder builds a fresh CREATED line.
func NewDishOrder(dish Dish, quantity int, at time.Time) (DishOrder, error) {
	if quantity < 1 {
		return DishOrder{}, NewInvalidQuantityError(quantity)
	}
	if !dish.Orderable() {
		return DishOrder{}, NewValidationError("price", "dish "+dish.Name+" has no positive price and cannot be ordered")
	}
	return DishOrder{
		Dish:     dish.Snapshot(),
		Quantity: quantity,
		history:  NewStatusHistory(StatusCreated, at),
	}, nil
}

// RestoreDishOrder rebuilds a persisted line, history included.
func RestoreDishOrder(id, orderID uint, dish DishSnapshot, quantity int, history []StatusEntry) DishOrder {
	return DishOrder{
		ID:       id,
		OrderID:  orderID,
		Dish:     dish,
		Quantity: quantity,
		history:  RestoreStatusHistory(history),
	}
}

func (l DishOrder) Status() Status {
	return l.history.Current()
}

func (l DishOrder) History() []StatusEntry {
	return l.history.Entries()
}

func (l DishOrder) HistoryLen() int {
	return l.history.Len()
}

func (l DishOrder) FirstReached(st Status) (time.Time, bool) {
	return l.history.FirstAt(st)
}

func (l DishOrder) Amount() decimal.Decimal {
	return l.Dish.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UpdateStatus applies the line lifecycle: only the unique successor of the current
// status is accepted. An empty history counts as CREATED and also accepts CREATED
// itself as the bootstrap entry. On error nothing changes.
func (l *DishOrder) UpdateStatus(target Status, at time.Time) error {
	if !target.Valid() {
		return NewValidationError("status", "unknown status "+string(target))
	}
	current := l.history.Current()
	if current == "" {
		if target == StatusCreated || target == StatusConfirmed {
			l.history.append(target, at)
			return nil
		}
		return &InvalidTransitionError{Entity: "dish order", From: current, To: target}
	}
	next, ok := current.Next()
	if !ok || next != target {
		return &InvalidTransitionError{Entity: "dish order", From: current, To: target}
	}
	l.history.append(target, at)
	return nil
}

func (l DishOrder) clone() DishOrder {
	cp := l
	cp.history = l.history.clone()
	return cp
}
