package menu

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restaurant-backend/internal/audit"
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/store"
	"restaurant-backend/internal/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var day = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	flour domain.Ingredient
}

// newFixture stocks 10 kg of flour priced 2 on day.
func newFixture(t *testing.T, rounding domain.Rounding) fixture {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()
	ingredients := store.NewIngredientStore(db)
	created, err := ingredients.Create(ctx, []string{"Flour"})
	require.NoError(t, err)
	flour := created[0]
	_, err = ingredients.AppendPrices(ctx, flour.ID, []domain.PriceEntry{{Amount: dec("2"), EffectiveDate: day}})
	require.NoError(t, err)
	_, err = ingredients.AppendMovements(ctx, flour.ID, []domain.StockMovement{
		{Quantity: dec("10"), Unit: domain.UnitKilogram, Type: domain.MovementIn, OccurredAt: day.Add(time.Hour)},
	})
	require.NoError(t, err)

	svc := NewService(store.NewDishStore(db), audit.NewService(db), logrus.New(), rounding)
	svc.now = func() time.Time { return day.Add(12 * time.Hour) }
	return fixture{svc: svc, flour: flour}
}

func TestService_CreateAndSummary(t *testing.T) {
	f := newFixture(t, domain.RoundCeil)
	ctx := context.Background()

	d, err := f.svc.CreateDish(ctx, " Bread ", dec("9"), []Requirement{
		{IngredientID: f.flour.ID, RequiredQuantity: dec("0.3"), Unit: domain.UnitKilogram},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bread", d.Name)

	s, err := f.svc.Summary(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, s.Cost.Equal(dec("0.6")), s.Cost.String())
	assert.True(t, s.Margin.Equal(dec("8.4")), s.Margin.String())
	assert.Equal(t, int64(34), s.ProducibleQuantity)
	assert.Equal(t, day.Add(12*time.Hour), s.At)

	// before the delivery nothing can be made
	s, err = f.svc.Summary(ctx, d.ID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.ProducibleQuantity)

	_, err = f.svc.Summary(ctx, 999, time.Time{})
	assert.True(t, domain.IsNotFound(err))
}

func TestService_FloorRounding(t *testing.T) {
	f := newFixture(t, domain.RoundFloor)
	ctx := context.Background()
	d, err := f.svc.CreateDish(ctx, "Bread", dec("9"), []Requirement{
		{IngredientID: f.flour.ID, RequiredQuantity: dec("0.3"), Unit: domain.UnitKilogram},
	})
	require.NoError(t, err)

	s, err := f.svc.Summary(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(33), s.ProducibleQuantity)
}

func TestService_Validation(t *testing.T) {
	f := newFixture(t, domain.RoundCeil)
	ctx := context.Background()

	_, err := f.svc.CreateDish(ctx, "Free", decimal.Zero, nil)
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.CreateDish(ctx, "", dec("1"), nil)
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.CreateDish(ctx, "Bread", dec("1"), []Requirement{{IngredientID: f.flour.ID, RequiredQuantity: dec("0")}})
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.CreateDish(ctx, "Bread", dec("1"), []Requirement{
		{IngredientID: f.flour.ID, RequiredQuantity: dec("1")},
		{IngredientID: f.flour.ID, RequiredQuantity: dec("2")},
	})
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.CreateDish(ctx, "Bread", dec("1"), []Requirement{{IngredientID: 42, RequiredQuantity: dec("1")}})
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.ListDishes(ctx, -1, 10)
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.ListDishes(ctx, 0, 0)
	assert.True(t, domain.IsValidation(err))
}

func TestService_UpdateDishIngredients(t *testing.T) {
	f := newFixture(t, domain.RoundCeil)
	ctx := context.Background()
	d, err := f.svc.CreateDish(ctx, "Soup", dec("5"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.ProducibleQuantityWith(day.Add(time.Hour), domain.RoundCeil))

	d, err = f.svc.UpdateDishIngredients(ctx, d.ID, []Requirement{
		{IngredientID: f.flour.ID, RequiredQuantity: dec("5"), Unit: domain.UnitKilogram},
	})
	require.NoError(t, err)
	require.Len(t, d.Ingredients, 1)
	assert.Equal(t, int64(2), d.ProducibleQuantityWith(day.Add(2*time.Hour), domain.RoundCeil))

	_, err = f.svc.UpdateDishIngredients(ctx, 999, nil)
	assert.True(t, domain.IsNotFound(err))

	dishes, err := f.svc.ListDishes(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, dishes, 1)
}

func TestHandlers(t *testing.T) {
	f := newFixture(t, domain.RoundCeil)
	app := fiber.New()
	app.Post("/dishes", CreateDishHandler(f.svc))
	app.Get("/dishes/:id", GetDishHandler(f.svc))
	app.Put("/dishes/:id/ingredients", UpdateDishIngredientsHandler(f.svc))
	app.Get("/dishes/:id/summary", DishSummaryHandler(f.svc))

	do := func(method, path, body string) (int, string) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(raw)
	}

	status, body := do(http.MethodPost, "/dishes",
		`{"name":"Bread","price":"9","ingredients":[{"ingredient_id":1,"required_quantity":"0.3","unit":"kg"}]}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Contains(t, body, `"gross_margin":"8.4"`)

	status, body = do(http.MethodGet, "/dishes/1/summary?at=2025-02-01T12:00:00Z&date=2025-01-31", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"producible_quantity":34`)
	assert.Contains(t, body, `"cost_at_date":"0"`)

	status, _ = do(http.MethodPut, "/dishes/1/ingredients", `[{"ingredient_id":1,"required_quantity":"1","unit":"cups"}]`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(http.MethodGet, "/dishes/7", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(http.MethodPost, "/dishes", `{"name":"Free","price":"0"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}
