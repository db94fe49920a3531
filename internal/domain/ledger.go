// Package domain holds the restaurant core: ingredient ledgers, dishes and the
// order / dish-line state machines. Nothing here touches storage or transport.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitGram       Unit = "G"
	UnitKilogram   Unit = "KG"
	UnitLiter      Unit = "L"
	UnitMilliliter Unit = "ML"
	UnitPiece      Unit = "U"
)

func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	switch u {
	case UnitGram, UnitKilogram, UnitLiter, UnitMilliliter, UnitPiece:
		return u, nil
	}
	return "", NewValidationError("unit", fmt.Sprintf("unknown unit %q", s))
}

type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

func ParseMovementType(s string) (MovementType, error) {
	mt := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	if mt != MovementIn && mt != MovementOut {
		return "", NewValidationError("movement_type", fmt.Sprintf("unknown movement type %q", s))
	}
	return mt, nil
}

// DateOf truncates t to its UTC calendar date. Effective dates are stored as UTC
// midnight, so the zone a driver reads them back in does not move the day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type PriceEntry struct {
	ID            uint
	Amount        decimal.Decimal
	EffectiveDate time.Time
}

func (p PriceEntry) validate() error {
	if p.Amount.IsNegative() {
		return NewValidationError("amount", "price must not be negative")
	}
	if p.EffectiveDate.IsZero() {
		return NewValidationError("effective_date", "date is required")
	}
	return nil
}

// PriceLedger keeps the dated price entries of one ingredient in append order.
type PriceLedger struct {
	entries []PriceEntry
}

func NewPriceLedger(entries ...PriceEntry) (PriceLedger, error) {
	var l PriceLedger
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			return PriceLedger{}, err
		}
	}
	return l, nil
}

func (l *PriceLedger) Append(e PriceEntry) error {
	if err := e.validate(); err != nil {
		return err
	}
	e.EffectiveDate = DateOf(e.EffectiveDate)
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns the entries sorted by effective date; same-date entries keep append order.
func (l PriceLedger) Entries() []PriceEntry {
	cp := make([]PriceEntry, len(l.entries))
	copy(cp, l.entries)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].EffectiveDate.Before(cp[j].EffectiveDate)
	})
	return cp
}

func (l PriceLedger) Len() int { return len(l.entries) }

// PriceAt matches the exact calendar date; the latest appended entry for that date wins.
// A missing entry yields zero.
func (l PriceLedger) PriceAt(date time.Time) decimal.Decimal {
	day := DateOf(date)
	found := decimal.Zero
	for _, e := range l.entries {
		if e.EffectiveDate.Equal(day) {
			found = e.Amount
		}
	}
	return found
}

// Current is the entry with the greatest effective date, zero when the ledger is empty.
func (l PriceLedger) Current() decimal.Decimal {
	var (
		best PriceEntry
		ok   bool
	)
	for _, e := range l.entries {
		if !ok || !e.EffectiveDate.Before(best.EffectiveDate) {
			best, ok = e, true
		}
	}
	if !ok {
		return decimal.Zero
	}
	return best.Amount
}

type StockMovement struct {
	ID         uint
	Quantity   decimal.Decimal
	Unit       Unit
	Type       MovementType
	OccurredAt time.Time
}

func (m StockMovement) validate() error {
	if m.Quantity.IsNegative() {
		return NewValidationError("quantity", "movement quantity must not be negative")
	}
	if m.Type != MovementIn && m.Type != MovementOut {
		return NewValidationError("movement_type", fmt.Sprintf("unknown movement type %q", m.Type))
	}
	if m.OccurredAt.IsZero() {
		return NewValidationError("occurred_at", "timestamp is required")
	}
	return nil
}

// signed is +quantity for IN and -quantity for OUT.
func (m StockMovement) signed() decimal.Decimal {
	if m.Type == MovementOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockLedger keeps the IN/OUT movements of one ingredient. The available quantity is
// always recomputed from the movements, never cached.
type StockLedger struct {
	movements []StockMovement
}

func NewStockLedger(movements ...StockMovement) (StockLedger, error) {
	var l StockLedger
	for _, m := range movements {
		if err := l.Append(m); err != nil {
			return StockLedger{}, err
		}
	}
	return l, nil
}

func (l *StockLedger) Append(m StockMovement) error {
	if err := m.validate(); err != nil {
		return err
	}
	l.movements = append(l.movements, m)
	return nil
}

func (l StockLedger) Movements() []StockMovement {
	cp := make([]StockMovement, len(l.movements))
	copy(cp, l.movements)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].OccurredAt.Before(cp[j].OccurredAt)
	})
	return cp
}

func (l StockLedger) Len() int { return len(l.movements) }

// AvailableAt sums the signed movements that occurred at or before the instant.
func (l StockLedger) AvailableAt(at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, m := range l.movements {
		if m.OccurredAt.After(at) {
			continue
		}
		total = total.Add(m.signed())
	}
	return total
}
