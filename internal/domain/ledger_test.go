package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flour(t *testing.T, t1, t2 time.Time) Ingredient {
	t.Helper()
	stock, err := NewStockLedger(
		StockMovement{Quantity: dec("10"), Unit: UnitKilogram, Type: MovementIn, OccurredAt: t1},
		StockMovement{Quantity: dec("3"), Unit: UnitKilogram, Type: MovementOut, OccurredAt: t2},
	)
	require.NoError(t, err)
	return Ingredient{ID: 1, Name: "Flour", Stock: stock}
}

func TestStockLedger_FlourScenario(t *testing.T) {
	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)
	f := flour(t, t1, t2)

	assert.True(t, f.AvailableQuantityAt(t2).Equal(dec("7")), "got %s", f.AvailableQuantityAt(t2))
	assert.True(t, f.AvailableQuantityAt(t1).Equal(dec("10")), "got %s", f.AvailableQuantityAt(t1))
	assert.True(t, f.AvailableQuantityAt(t1.Add(-time.Second)).IsZero())
}

func TestStockLedger_LaterMovementsDoNotChangePastAvailability(t *testing.T) {
	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	f := flour(t, t1, t2)
	before := f.AvailableQuantityAt(t2)

	require.NoError(t, f.Stock.Append(StockMovement{Quantity: dec("50"), Unit: UnitKilogram, Type: MovementIn, OccurredAt: t2.Add(time.Minute)}))
	require.NoError(t, f.Stock.Append(StockMovement{Quantity: dec("5"), Unit: UnitKilogram, Type: MovementOut, OccurredAt: t2.Add(time.Hour)}))

	assert.True(t, f.AvailableQuantityAt(t2).Equal(before))
	assert.True(t, f.AvailableQuantityAt(t2.Add(2*time.Hour)).Equal(dec("52")))
}

func TestStockLedger_OutOfOrderAppendsStillSumByTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var l StockLedger
	require.NoError(t, l.Append(StockMovement{Quantity: dec("4"), Type: MovementOut, OccurredAt: base.Add(3 * time.Hour)}))
	require.NoError(t, l.Append(StockMovement{Quantity: dec("10"), Type: MovementIn, OccurredAt: base}))

	assert.True(t, l.AvailableAt(base.Add(time.Hour)).Equal(dec("10")))
	assert.True(t, l.AvailableAt(base.Add(3*time.Hour)).Equal(dec("6")))

	moves := l.Movements()
	require.Len(t, moves, 2)
	assert.Equal(t, MovementIn, moves[0].Type)
}

func TestStockLedger_RejectsInvalidMovements(t *testing.T) {
	var l StockLedger
	err := l.Append(StockMovement{Quantity: dec("-1"), Type: MovementIn, OccurredAt: time.Now()})
	assert.True(t, IsValidation(err))

	err = l.Append(StockMovement{Quantity: dec("1"), Type: "SIDEWAYS", OccurredAt: time.Now()})
	assert.True(t, IsValidation(err))

	err = l.Append(StockMovement{Quantity: dec("1"), Type: MovementIn})
	assert.True(t, IsValidation(err))
	assert.Zero(t, l.Len())
}

func TestPriceLedger_PriceAtAndCurrent(t *testing.T) {
	jan := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	l, err := NewPriceLedger(
		PriceEntry{Amount: dec("1.20"), EffectiveDate: feb},
		PriceEntry{Amount: dec("1.00"), EffectiveDate: jan},
	)
	require.NoError(t, err)

	assert.True(t, l.PriceAt(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)).Equal(dec("1.00")))
	assert.True(t, l.PriceAt(feb.Add(20*time.Hour)).Equal(dec("1.20")))
	assert.True(t, l.PriceAt(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)).IsZero(), "no entry falls back to zero")
	assert.True(t, l.Current().Equal(dec("1.20")))

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].EffectiveDate.Before(entries[1].EffectiveDate))
}

func TestPriceLedger_CorrectionOnSameDateWins(t *testing.T) {
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	l, err := NewPriceLedger(
		PriceEntry{Amount: dec("3.00"), EffectiveDate: day},
		PriceEntry{Amount: dec("2.50"), EffectiveDate: day},
	)
	require.NoError(t, err)

	assert.True(t, l.PriceAt(day).Equal(dec("2.50")))
	assert.True(t, l.Current().Equal(dec("2.50")))
	assert.Equal(t, 2, l.Len())
}

func TestPriceLedger_EmptyAndInvalid(t *testing.T) {
	var l PriceLedger
	assert.True(t, l.Current().IsZero())

	err := l.Append(PriceEntry{Amount: dec("-0.01"), EffectiveDate: time.Now()})
	assert.True(t, IsValidation(err))
	err = l.Append(PriceEntry{Amount: dec("1")})
	assert.True(t, IsValidation(err))
}

func TestPriceLedger_DateSurvivesReloadInAnotherZone(t *testing.T) {
	stored := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	newYork := time.FixedZone("EST", -5*60*60)

	// a driver may hand the UTC midnight back in the server's zone
	reloaded, err := NewPriceLedger(PriceEntry{Amount: dec("2.50"), EffectiveDate: stored.In(newYork)})
	require.NoError(t, err)

	assert.True(t, reloaded.PriceAt(stored).Equal(dec("2.50")), "got %s", reloaded.PriceAt(stored))
	assert.True(t, reloaded.PriceAt(stored.AddDate(0, 0, -1)).IsZero())
	assert.Equal(t, stored, reloaded.Entries()[0].EffectiveDate)
}
