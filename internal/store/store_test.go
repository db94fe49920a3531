package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db          *gorm.DB
	ingredients *IngredientStore
	dishes      *DishStore
	orders      *OrderStore
}

func newFixture(t *testing.T) fixture {
	db := testdb.Open(t)
	return fixture{
		db:          db,
		ingredients: NewIngredientStore(db),
		dishes:      NewDishStore(db),
		orders:      NewOrderStore(db),
	}
}

// seedPizza creates flour (10 in, 3 out) and a pizza needing 2 of it.
func (f fixture) seedPizza(t *testing.T, t1, t2 time.Time) domain.Dish {
	t.Helper()
	ctx := context.Background()
	created, err := f.ingredients.Create(ctx, []string{"Flour"})
	require.NoError(t, err)
	flour := created[0]

	_, err = f.ingredients.AppendMovements(ctx, flour.ID, []domain.StockMovement{
		{Quantity: dec("10"), Unit: domain.UnitKilogram, Type: domain.MovementIn, OccurredAt: t1},
		{Quantity: dec("3"), Unit: domain.UnitKilogram, Type: domain.MovementOut, OccurredAt: t2},
	})
	require.NoError(t, err)
	_, err = f.ingredients.AppendPrices(ctx, flour.ID, []domain.PriceEntry{{Amount: dec("1.5"), EffectiveDate: t1}})
	require.NoError(t, err)

	pizza, err := f.dishes.Create(ctx, domain.Dish{
		Name:  "Pizza",
		Price: dec("12"),
		Ingredients: []domain.DishIngredient{
			{Ingredient: domain.Ingredient{ID: flour.ID}, RequiredQuantity: dec("2"), Unit: domain.UnitKilogram},
		},
	})
	require.NoError(t, err)
	return pizza
}

func TestIngredientStore_CreateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.ingredients.Create(ctx, []string{"Tomato", "Basil"})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)

	_, err = f.ingredients.Create(ctx, []string{"Garlic", "Tomato"})
	var dup *domain.DuplicateReferenceError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "Tomato", dup.Reference)

	all, err := f.ingredients.FindAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "Garlic was rolled back")
}

func TestIngredientStore_LedgersRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)
	pizza := f.seedPizza(t, t1, t2)
	flourID := pizza.Ingredients[0].Ingredient.ID

	flour, err := f.ingredients.FindByID(ctx, flourID)
	require.NoError(t, err)
	assert.True(t, flour.AvailableQuantityAt(t2).Equal(dec("7")))
	assert.True(t, flour.AvailableQuantityAt(t1).Equal(dec("10")))
	assert.True(t, flour.ActualPrice().Equal(dec("1.5")))

	// same-day correction: the later row wins
	flour, err = f.ingredients.AppendPrices(ctx, flourID, []domain.PriceEntry{{Amount: dec("1.75"), EffectiveDate: t1.Add(time.Hour)}})
	require.NoError(t, err)
	assert.True(t, flour.PriceAt(t1).Equal(dec("1.75")), "got %s", flour.PriceAt(t1))
	assert.Equal(t, 2, flour.Prices.Len())

	_, err = f.ingredients.FindByID(ctx, 999)
	assert.True(t, domain.IsNotFound(err))
	_, err = f.ingredients.AppendMovements(ctx, 999, nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestDishStore_LoadsBillOfMaterials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)
	created := f.seedPizza(t, t1, t2)

	pizza, err := f.dishes.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, pizza.Ingredients, 1)
	assert.EqualValues(t, 4, pizza.ProducibleQuantityAt(t2))
	assert.True(t, pizza.TotalIngredientCost().Equal(dec("3")))

	byID, err := f.dishes.FindByIDs(ctx, []uint{created.ID, 404})
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	_, err = f.dishes.FindByID(ctx, 404)
	assert.True(t, domain.IsNotFound(err))
}

func TestDishStore_ReplaceIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, t1, t1.Add(time.Hour))

	extra, err := f.ingredients.Create(ctx, []string{"Cheese"})
	require.NoError(t, err)

	updated, err := f.dishes.ReplaceIngredients(ctx, pizza.ID, []domain.DishIngredient{
		{Ingredient: domain.Ingredient{ID: extra[0].ID}, RequiredQuantity: dec("0.25"), Unit: domain.UnitKilogram},
	})
	require.NoError(t, err)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "Cheese", updated.Ingredients[0].Ingredient.Name)

	_, err = f.dishes.ReplaceIngredients(ctx, pizza.ID, []domain.DishIngredient{
		{Ingredient: domain.Ingredient{ID: 777}, RequiredQuantity: dec("1")},
	})
	assert.True(t, domain.IsNotFound(err))

	reloaded, err := f.dishes.FindByID(ctx, pizza.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cheese", reloaded.Ingredients[0].Ingredient.Name, "failed replace rolled back")
}

func newStoredOrder(t *testing.T, f fixture, ref string, at time.Time, dishes ...domain.Dish) *domain.Order {
	t.Helper()
	var lines []domain.DishOrder
	for _, d := range dishes {
		l, err := domain.NewDishOrder(d, 1, at)
		require.NoError(t, err)
		lines = append(lines, l)
	}
	o, err := domain.NewOrder(ref, at, lines)
	require.NoError(t, err)
	stored, err := f.orders.Create(context.Background(), o)
	require.NoError(t, err)
	return stored
}

func TestOrderStore_CreateAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, at, at)

	o := newStoredOrder(t, f, "T-1", at, pizza, pizza)
	assert.NotZero(t, o.ID)
	assert.Equal(t, domain.StatusCreated, o.Status())
	require.Len(t, o.Lines(), 2)
	assert.NotEqual(t, o.Lines()[0].ID, o.Lines()[1].ID)

	exists, err := f.orders.ExistsByReference(ctx, "T-1")
	require.NoError(t, err)
	assert.True(t, exists)

	dup, err := domain.NewOrder("T-1", at, nil)
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, dup)
	var dr *domain.DuplicateReferenceError
	assert.True(t, errors.As(err, &dr))

	_, err = f.orders.FindByReference(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestOrderStore_SaveAppendsHistoryAndBumpsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, at, at)
	o := newStoredOrder(t, f, "T-2", at, pizza)

	_, err := o.Confirm(at.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, o.UpdateLineStatus(pizza.ID, domain.StatusInPreparation, at.Add(2*time.Minute)))

	saved, err := f.orders.Save(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, domain.StatusInPreparation, saved.Status())
	assert.Equal(t, 3, saved.HistoryLen())
	line := saved.Lines()[0]
	assert.Equal(t, o.Lines()[0].ID, line.ID)
	assert.Equal(t, 3, line.HistoryLen())

	byStatus, err := f.orders.FindByStatus(ctx, domain.StatusInPreparation)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "T-2", byStatus[0].Reference)
}

func TestOrderStore_SaveRejectsStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, at, at)
	o := newStoredOrder(t, f, "T-3", at, pizza)

	first, err := f.orders.FindByReference(ctx, "T-3")
	require.NoError(t, err)
	second, err := f.orders.FindByReference(ctx, "T-3")
	require.NoError(t, err)

	_, err = first.Confirm(at)
	require.NoError(t, err)
	_, err = f.orders.Save(ctx, first)
	require.NoError(t, err)

	_, err = second.Confirm(at)
	require.NoError(t, err)
	_, err = f.orders.Save(ctx, second)
	var cu *domain.ConcurrentUpdateError
	require.True(t, errors.As(err, &cu))

	stored, err := f.orders.FindByReference(ctx, o.Reference)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.HistoryLen(), "stale write left no trace")
}

func TestOrderStore_SaveReplacesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, at, at)
	o := newStoredOrder(t, f, "T-4", at, pizza)
	oldLineID := o.Lines()[0].ID

	l1, err := domain.NewDishOrder(pizza, 3, at)
	require.NoError(t, err)
	l2, err := domain.NewDishOrder(pizza, 1, at)
	require.NoError(t, err)
	require.NoError(t, o.ReplaceLines([]domain.DishOrder{l1, l2}, domain.StatusConfirmed, at.Add(time.Minute)))

	saved, err := f.orders.Save(ctx, o)
	require.NoError(t, err)
	lines := saved.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Quantity)
	for _, l := range lines {
		assert.NotEqual(t, oldLineID, l.ID)
		assert.Equal(t, domain.StatusConfirmed, l.Status())
		assert.Equal(t, 2, l.HistoryLen())
	}
}

func TestOrderStore_LineTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)
	pizza := f.seedPizza(t, at, at)
	o := newStoredOrder(t, f, "T-5", at, pizza)

	_, err := o.Confirm(at)
	require.NoError(t, err)
	require.NoError(t, o.UpdateLineStatus(pizza.ID, domain.StatusInPreparation, at.Add(5*time.Minute)))
	require.NoError(t, o.UpdateLineStatus(pizza.ID, domain.StatusFinished, at.Add(20*time.Minute)))
	_, err = f.orders.Save(ctx, o)
	require.NoError(t, err)

	rows, err := f.orders.LineTimestamps(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T-5", rows[0].OrderReference)
	assert.Equal(t, domain.StatusFinished, rows[0].Status)
	require.NotNil(t, rows[0].PreparedAt)
	require.NotNil(t, rows[0].FinishedAt)
	assert.Equal(t, 15*time.Minute, rows[0].FinishedAt.Sub(*rows[0].PreparedAt))

	rows, err = f.orders.LineTimestamps(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
