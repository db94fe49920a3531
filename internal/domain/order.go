package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order owns its lines by value. Its status is whatever the last history entry says.
type Order struct {
	ID        uint
	Reference string
	CreatedAt time.Time
	Version   int
	history   StatusHistory
	lines     []DishOrder
}

// NewOrder is the only way to put an order and its lines in their initial state: every
// history starts with a single CREATED entry stamped with the creation time.
func NewOrder(reference string, createdAt time.Time, lines []DishOrder) (*Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, NewValidationError("reference", "order reference is required")
	}
	o := &Order{
		Reference: reference,
		CreatedAt: createdAt,
		history:   NewStatusHistory(StatusCreated, createdAt),
	}
	initial, err := o.initialLines(lines, createdAt)
	if err != nil {
		return nil, err
	}
	o.lines = initial
	return o, nil
}

// RestoreOrder rebuilds a persisted order without running any transition rules.
func RestoreOrder(id uint, reference string, createdAt time.Time, version int, history []StatusEntry, lines []DishOrder) *Order {
	cp := make([]DishOrder, len(lines))
	for i, l := range lines {
		cp[i] = l.clone()
	}
	return &Order{
		ID:        id,
		Reference: reference,
		CreatedAt: createdAt,
		Version:   version,
		history:   RestoreStatusHistory(history),
		lines:     cp,
	}
}

func (o *Order) initialLines(lines []DishOrder, at time.Time) ([]DishOrder, error) {
	out := make([]DishOrder, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, NewInvalidQuantityError(l.Quantity)
		}
		out = append(out, DishOrder{
			OrderID:  o.ID,
			Dish:     l.Dish,
			Quantity: l.Quantity,
			history:  NewStatusHistory(StatusCreated, at),
		})
	}
	return out, nil
}

func (o *Order) Status() Status {
	return o.history.Current()
}

func (o *Order) History() []StatusEntry {
	return o.history.Entries()
}

func (o *Order) HistoryLen() int {
	return o.history.Len()
}

func (o *Order) Lines() []DishOrder {
	cp := make([]DishOrder, len(o.lines))
	for i, l := range o.lines {
		cp[i] = l.clone()
	}
	return cp
}

// TotalAmount uses the price snapshots taken when the lines were created.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.lines {
		total = total.Add(l.Amount())
	}
	return total
}

// Confirm moves a CREATED order to CONFIRMED and cascades CONFIRMED to every line still
// at CREATED. On any other status it does nothing and reports false.
func (o *Order) Confirm(at time.Time) (bool, error) {
	if o.Status() != StatusCreated {
		return false, nil
	}
	lines := o.Lines()
	for i := range lines {
		st := lines[i].Status()
		if st != StatusCreated && st != "" {
			continue
		}
		if err := lines[i].UpdateStatus(StatusConfirmed, at); err != nil {
			return false, err
		}
	}
	o.lines = lines
	o.history.append(StatusConfirmed, at)
	return true, nil
}

// TransitionTo is an explicit request to move the order one step forward. The request
// is refused if it skips a stage or if the lines do not satisfy the stage's gate.
func (o *Order) TransitionTo(target Status, at time.Time) error {
	if !target.Valid() {
		return NewValidationError("status", "unknown status "+string(target))
	}
	current := o.Status()
	next, ok := current.Next()
	if !ok || next != target {
		return &InvalidTransitionError{Entity: "order " + o.Reference, From: current, To: target}
	}
	if target == StatusConfirmed {
		_, err := o.Confirm(at)
		return err
	}
	if holds, reason := o.gate(target); !holds {
		return &InvalidTransitionError{Entity: "order " + o.Reference, From: current, To: target, Reason: reason}
	}
	o.history.append(target, at)
	return nil
}

// RecomputeFromLines advances the order by at most one stage: the successor of the
// current status, when the lines satisfy its gate. It reports whether a step was taken.
func (o *Order) RecomputeFromLines(at time.Time) bool {
	next, ok := o.Status().Next()
	if !ok {
		return false
	}
	if holds, _ := o.gate(next); !holds {
		return false
	}
	o.history.append(next, at)
	return true
}

// gate is the aggregate predicate over line statuses guarding entry into target.
func (o *Order) gate(target Status) (bool, string) {
	if len(o.lines) == 0 {
		return false, "order has no dishes"
	}
	required := target
	switch target {
	case StatusConfirmed, StatusInPreparation:
		required = StatusConfirmed
	case StatusFinished:
		required = StatusFinished
	case StatusServed:
		required = StatusServed
	}
	for _, l := range o.lines {
		if !l.Status().AtOrPast(required) {
			return false, fmt.Sprintf("dish %d (%s) is still %s", l.Dish.DishID, l.Dish.Name, l.Status())
		}
	}
	return true, ""
}

// UpdateLineStatus moves every line of the given dish to target, then lets the order
// follow. Either all matching lines move or none do.
func (o *Order) UpdateLineStatus(dishID uint, target Status, at time.Time) error {
	lines := o.Lines()
	matched := 0
	for i := range lines {
		if lines[i].Dish.DishID != dishID {
			continue
		}
		matched++
		if err := lines[i].UpdateStatus(target, at); err != nil {
			return err
		}
	}
	if matched == 0 {
		return NewNotFoundError("dish in order "+o.Reference, dishID)
	}
	o.lines = lines
	o.RecomputeFromLines(at)
	return nil
}

// ReplaceLines swaps the whole line set. Only a CREATED order can be edited. desired may
// be empty, CREATED or CONFIRMED; CONFIRMED confirms the order right away.
func (o *Order) ReplaceLines(lines []DishOrder, desired Status, at time.Time) error {
	if o.Status() != StatusCreated {
		return &IllegalOrderStateError{Reference: o.Reference, Status: o.Status(), Operation: "replace dishes"}
	}
	switch desired {
	case "", StatusCreated, StatusConfirmed:
	default:
		return &InvalidTransitionError{Entity: "order " + o.Reference, From: o.Status(), To: desired,
			Reason: "dishes can only be replaced with status CREATED or CONFIRMED"}
	}
	replaced, err := o.initialLines(lines, at)
	if err != nil {
		return err
	}
	o.lines = replaced
	if desired == StatusConfirmed {
		if _, err := o.Confirm(at); err != nil {
			return err
		}
	}
	return nil
}

// QuantitiesByDish sums ordered quantities per dish id.
func (o *Order) QuantitiesByDish() map[uint]int64 {
	out := make(map[uint]int64)
	for _, l := range o.lines {
		out[l.Dish.DishID] += int64(l.Quantity)
	}
	return out
}
