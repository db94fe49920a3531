package menu

import (
	"time"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/httperr"
	"restaurant-backend/internal/inventory"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type DishIngredientResponse struct {
	IngredientID     uint            `json:"ingredient_id"`
	Name             string          `json:"name"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Unit             string          `json:"unit"`
	ActualPrice      decimal.Decimal `json:"actual_price"`
}

type DishResponse struct {
	ID                  uint                     `json:"id"`
	Name                string                   `json:"name"`
	Price               decimal.Decimal          `json:"price"`
	TotalIngredientCost decimal.Decimal          `json:"total_ingredient_cost"`
	GrossMargin         decimal.Decimal          `json:"gross_margin"`
	Ingredients         []DishIngredientResponse `json:"ingredients"`
}

type RequirementRequest struct {
	IngredientID     uint            `json:"ingredient_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Unit             string          `json:"unit"`
}

type CreateDishRequest struct {
	Name        string               `json:"name"`
	Price       decimal.Decimal      `json:"price"`
	Ingredients []RequirementRequest `json:"ingredients"`
}

func ToDishResponse(d domain.Dish) DishResponse {
	resp := DishResponse{
		ID:                  d.ID,
		Name:                d.Name,
		Price:               d.Price,
		TotalIngredientCost: d.TotalIngredientCost(),
		GrossMargin:         d.GrossMargin(),
		Ingredients:         make([]DishIngredientResponse, 0, len(d.Ingredients)),
	}
	for _, di := range d.Ingredients {
		resp.Ingredients = append(resp.Ingredients, DishIngredientResponse{
			IngredientID:     di.Ingredient.ID,
			Name:             di.Ingredient.Name,
			RequiredQuantity: di.RequiredQuantity,
			Unit:             string(di.Unit),
			ActualPrice:      di.Ingredient.ActualPrice(),
		})
	}
	return resp
}

func toRequirements(body []RequirementRequest) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(body))
	for _, r := range body {
		unit, err := domain.ParseUnit(r.Unit)
		if err != nil {
			return nil, httperr.From(err)
		}
		reqs = append(reqs, Requirement{IngredientID: r.IngredientID, RequiredQuantity: r.RequiredQuantity, Unit: unit})
	}
	return reqs, nil
}

// GET /api/dishes?page=0&size=10
func ListDishesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dishes, err := svc.ListDishes(c.UserContext(), c.QueryInt("page", 0), c.QueryInt("size", 10))
		if err != nil {
			return httperr.From(err)
		}
		res := make([]DishResponse, 0, len(dishes))
		for _, d := range dishes {
			res = append(res, ToDishResponse(d))
		}
		return c.JSON(res)
	}
}

// POST /api/dishes
func CreateDishHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDishRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		reqs, err := toRequirements(body.Ingredients)
		if err != nil {
			return err
		}
		d, err := svc.CreateDish(c.UserContext(), body.Name, body.Price, reqs)
		if err != nil {
			return httperr.From(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ToDishResponse(d))
	}
}

// GET /api/dishes/:id
func GetDishHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := inventory.ParamID(c, "id")
		if err != nil {
			return err
		}
		d, err := svc.GetDish(c.UserContext(), id)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToDishResponse(d))
	}
}

// PUT /api/dishes/:id/ingredients, body: [{"ingredient_id":1,"required_quantity":"0.2","unit":"KG"}]
func UpdateDishIngredientsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := inventory.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body []RequirementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		reqs, err := toRequirements(body)
		if err != nil {
			return err
		}
		d, err := svc.UpdateDishIngredients(c.UserContext(), id, reqs)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToDishResponse(d))
	}
}

// GET /api/dishes/:id/summary?at=2025-02-01T10:00:00Z&date=2025-01-15
// date additionally prices the recipe as of that calendar day.
func DishSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := inventory.ParamID(c, "id")
		if err != nil {
			return err
		}
		at, err := inventory.QueryTime(c, "at")
		if err != nil {
			return err
		}
		s, err := svc.Summary(c.UserContext(), id, at)
		if err != nil {
			return httperr.From(err)
		}

		out := fiber.Map{
			"dish_id":               s.Dish.ID,
			"name":                  s.Dish.Name,
			"price":                 s.Dish.Price,
			"total_ingredient_cost": s.Cost,
			"gross_margin":          s.Margin,
			"producible_quantity":   s.ProducibleQuantity,
			"rounding":              s.Rounding,
			"at":                    s.At,
		}
		if raw := c.Query("date"); raw != "" {
			date, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			out["cost_at_date"] = s.Dish.TotalIngredientCostAt(date)
			out["gross_margin_at_date"] = s.Dish.GrossMarginAt(date)
		}
		return c.JSON(out)
	}
}
