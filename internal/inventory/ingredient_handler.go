package inventory

import (
	"strings"
	"time"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/httperr"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PriceResponse struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"`
}

type StockMovementResponse struct {
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	MovementType string          `json:"movement_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

type IngredientResponse struct {
	ID                uint                    `json:"id"`
	Name              string                  `json:"name"`
	ActualPrice       decimal.Decimal         `json:"actual_price"`
	AvailableQuantity decimal.Decimal         `json:"available_quantity"`
	Prices            []PriceResponse         `json:"prices"`
	StockMovements    []StockMovementResponse `json:"stock_movements"`
}

type CreateIngredientRequest struct {
	Name string `json:"name"`
}

type PriceRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"` // 2006-01-02
}

type StockMovementRequest struct {
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	MovementType string          `json:"movement_type"`
	OccurredAt   *time.Time      `json:"occurred_at"`
}

func ToIngredientResponse(ing domain.Ingredient, at time.Time) IngredientResponse {
	resp := IngredientResponse{
		ID:                ing.ID,
		Name:              ing.Name,
		ActualPrice:       ing.ActualPrice(),
		AvailableQuantity: ing.AvailableQuantityAt(at),
		Prices:            make([]PriceResponse, 0, ing.Prices.Len()),
		StockMovements:    make([]StockMovementResponse, 0, ing.Stock.Len()),
	}
	for _, p := range ing.Prices.Entries() {
		resp.Prices = append(resp.Prices, PriceResponse{Amount: p.Amount, EffectiveDate: p.EffectiveDate.Format("2006-01-02")})
	}
	for _, m := range ing.Stock.Movements() {
		resp.StockMovements = append(resp.StockMovements, StockMovementResponse{
			Quantity:     m.Quantity,
			Unit:         string(m.Unit),
			MovementType: string(m.Type),
			OccurredAt:   m.OccurredAt,
		})
	}
	return resp
}

func toIngredientResponses(items []domain.Ingredient) []IngredientResponse {
	now := time.Now()
	res := make([]IngredientResponse, 0, len(items))
	for _, ing := range items {
		res = append(res, ToIngredientResponse(ing, now))
	}
	return res
}

// GET /api/ingredients?page=0&size=10&priceMin=1&priceMax=5
func ListIngredientsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := ListQuery{Page: c.QueryInt("page", 0), Size: c.QueryInt("size", 10)}
		var err error
		if q.PriceMin, err = queryDecimal(c, "priceMin"); err != nil {
			return err
		}
		if q.PriceMax, err = queryDecimal(c, "priceMax"); err != nil {
			return err
		}

		items, err := svc.ListIngredients(c.UserContext(), q)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(toIngredientResponses(items))
	}
}

// POST /api/ingredients, body: [{"name": "Flour"}, ...]
func CreateIngredientsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body []CreateIngredientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		names := make([]string, 0, len(body))
		for _, b := range body {
			names = append(names, b.Name)
		}

		created, err := svc.CreateIngredients(c.UserContext(), names)
		if err != nil {
			return httperr.From(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toIngredientResponses(created))
	}
}

// GET /api/ingredients/:id
func GetIngredientHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		ing, err := svc.GetIngredient(c.UserContext(), id)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToIngredientResponse(ing, time.Now()))
	}
}

// PUT /api/ingredients/:id/prices
func AddPricesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		var body []PriceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		entries := make([]domain.PriceEntry, 0, len(body))
		for _, p := range body {
			date, err := time.Parse("2006-01-02", strings.TrimSpace(p.EffectiveDate))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "effective_date must be YYYY-MM-DD")
			}
			entries = append(entries, domain.PriceEntry{Amount: p.Amount, EffectiveDate: date})
		}

		ing, err := svc.AddPrices(c.UserContext(), id, entries)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToIngredientResponse(ing, time.Now()))
	}
}

// PUT /api/ingredients/:id/stock-movements
func AddStockMovementsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		var body []StockMovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		movements := make([]domain.StockMovement, 0, len(body))
		for _, m := range body {
			unit, err := domain.ParseUnit(m.Unit)
			if err != nil {
				return httperr.From(err)
			}
			mt, err := domain.ParseMovementType(m.MovementType)
			if err != nil {
				return httperr.From(err)
			}
			mv := domain.StockMovement{Quantity: m.Quantity, Unit: unit, Type: mt}
			if m.OccurredAt != nil {
				mv.OccurredAt = *m.OccurredAt
			}
			movements = append(movements, mv)
		}

		ing, err := svc.AddStockMovements(c.UserContext(), id, movements)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToIngredientResponse(ing, time.Now()))
	}
}

// GET /api/ingredients/:id/availability?at=2025-02-01T10:00:00Z
func AvailabilityHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		at, err := QueryTime(c, "at")
		if err != nil {
			return err
		}

		ing, qty, evaluatedAt, err := svc.Availability(c.UserContext(), id, at)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(fiber.Map{
			"ingredient_id":      ing.ID,
			"name":               ing.Name,
			"available_quantity": qty,
			"at":                 evaluatedAt,
		})
	}
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, key string) (uint, error) {
	id, err := c.ParamsInt(key)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key)
	}
	return uint(id), nil
}

// QueryTime parses an optional RFC 3339 query value; absent yields the zero time.
func QueryTime(c *fiber.Ctx, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be a number")
	}
	return &d, nil
}
