package ordering

import (
	"bytes"
	"strings"
	"time"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/httperr"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StatusEntryResponse struct {
	Status    domain.Status `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
}

type DishOrderResponse struct {
	ID        uint                  `json:"id"`
	DishID    uint                  `json:"dish_id"`
	DishName  string                `json:"dish_name"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	Quantity  int                   `json:"quantity"`
	Amount    decimal.Decimal       `json:"amount"`
	Status    domain.Status         `json:"status"`
	History   []StatusEntryResponse `json:"history"`
}

type OrderResponse struct {
	ID          uint                  `json:"id"`
	Reference   string                `json:"reference"`
	Status      domain.Status         `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	Version     int                   `json:"version"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	History     []StatusEntryResponse `json:"history"`
	Dishes      []DishOrderResponse   `json:"dishes"`
}

type LineRequestBody struct {
	DishID   uint `json:"dish_id"`
	Quantity int  `json:"quantity"`
}

type CreateOrderRequest struct {
	Reference string            `json:"reference"`
	Dishes    []LineRequestBody `json:"dishes"`
}

type ReplaceDishesRequest struct {
	Dishes []LineRequestBody `json:"dishes"`
	Status string            `json:"status"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func toHistory(entries []domain.StatusEntry) []StatusEntryResponse {
	out := make([]StatusEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, StatusEntryResponse{Status: e.Status, ChangedAt: e.ChangedAt})
	}
	return out
}

func ToOrderResponse(o *domain.Order) OrderResponse {
	lines := o.Lines()
	resp := OrderResponse{
		ID:          o.ID,
		Reference:   o.Reference,
		Status:      o.Status(),
		CreatedAt:   o.CreatedAt,
		Version:     o.Version,
		TotalAmount: o.TotalAmount(),
		History:     toHistory(o.History()),
		Dishes:      make([]DishOrderResponse, 0, len(lines)),
	}
	for _, l := range lines {
		resp.Dishes = append(resp.Dishes, DishOrderResponse{
			ID:        l.ID,
			DishID:    l.Dish.DishID,
			DishName:  l.Dish.Name,
			UnitPrice: l.Dish.UnitPrice,
			Quantity:  l.Quantity,
			Amount:    l.Amount(),
			Status:    l.Status(),
			History:   toHistory(l.History()),
		})
	}
	return resp
}

func toLineRequests(body []LineRequestBody) []LineRequest {
	out := make([]LineRequest, 0, len(body))
	for _, b := range body {
		out = append(out, LineRequest{DishID: b.DishID, Quantity: b.Quantity})
	}
	return out
}

// parseStatus accepts an empty value only when allowEmpty is set.
func parseStatus(raw string, allowEmpty bool) (domain.Status, error) {
	if strings.TrimSpace(raw) == "" {
		if allowEmpty {
			return "", nil
		}
		return "", fiber.NewError(fiber.StatusBadRequest, "status is required")
	}
	st, err := domain.ParseStatus(raw)
	if err != nil {
		return "", httperr.From(err)
	}
	return st, nil
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		o, err := svc.CreateOrder(c.UserContext(), body.Reference, toLineRequests(body.Dishes))
		if err != nil {
			return httperr.From(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ToOrderResponse(o))
	}
}

// GET /api/orders/:reference
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := svc.GetOrder(c.UserContext(), c.Params("reference"))
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToOrderResponse(o))
	}
}

// PUT /api/orders/:reference/dishes, body: {"dishes":[...], "status":"CONFIRMED"}
func ReplaceDishesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReplaceDishesRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		desired, err := parseStatus(body.Status, true)
		if err != nil {
			return err
		}
		o, err := svc.ReplaceLines(c.UserContext(), c.Params("reference"), toLineRequests(body.Dishes), desired)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToOrderResponse(o))
	}
}

// POST /api/orders/:reference/confirm
func ConfirmOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := svc.ConfirmOrder(c.UserContext(), c.Params("reference"))
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToOrderResponse(o))
	}
}

// PUT /api/orders/:reference/status
func AdvanceOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		st, err := parseStatus(body.Status, false)
		if err != nil {
			return err
		}
		o, err := svc.AdvanceOrder(c.UserContext(), c.Params("reference"), st)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToOrderResponse(o))
	}
}

// PUT /api/orders/:reference/dishes/:dishId
func UpdateDishStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dishID, err := c.ParamsInt("dishId")
		if err != nil || dishID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid dishId")
		}
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		st, err := parseStatus(body.Status, false)
		if err != nil {
			return err
		}
		o, err := svc.UpdateLineStatus(c.UserContext(), c.Params("reference"), uint(dishID), st)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(ToOrderResponse(o))
	}
}

// GET /api/dish-orders?page=0&size=20
func LineTimestampsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.LineTimestamps(c.UserContext(), c.QueryInt("page", 0), c.QueryInt("size", 20))
		if err != nil {
			return httperr.From(err)
		}
		out := make([]fiber.Map, 0, len(rows))
		for _, r := range rows {
			out = append(out, fiber.Map{
				"dish_order_id":   r.DishOrderID,
				"order_reference": r.OrderReference,
				"dish_id":         r.DishID,
				"dish_name":       r.DishName,
				"quantity":        r.Quantity,
				"status":          r.Status,
				"prepared_at":     r.PreparedAt,
				"finished_at":     r.FinishedAt,
			})
		}
		return c.JSON(out)
	}
}

// GET /api/sales
func SalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sold, err := svc.Sales(c.UserContext())
		if err != nil {
			return httperr.From(err)
		}
		out := make([]fiber.Map, 0, len(sold))
		for _, d := range sold {
			out = append(out, fiber.Map{
				"dish_id":   d.DishID,
				"dish_name": d.DishName,
				"quantity":  d.Quantity,
				"revenue":   d.Revenue,
			})
		}
		return c.JSON(out)
	}
}

// GET /api/sales/export
func ExportSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := svc.ExportSales(c.UserContext(), &buf); err != nil {
			return httperr.From(err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="sales.xlsx"`)
		return c.Send(buf.Bytes())
	}
}
