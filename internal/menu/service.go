// Package menu manages dishes and their bills of materials.
package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-backend/internal/audit"
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/logging"
	"restaurant-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	FindByID(ctx context.Context, id uint) (domain.Dish, error)
	FindAll(ctx context.Context, page, size int) ([]domain.Dish, error)
	Create(ctx context.Context, d domain.Dish) (domain.Dish, error)
	ReplaceIngredients(ctx context.Context, dishID uint, items []domain.DishIngredient) (domain.Dish, error)
}

type Auditor interface {
	Write(ctx context.Context, opts audit.LogOptions) error
}

// Requirement is how much of one ingredient a single dish needs.
type Requirement struct {
	IngredientID     uint
	RequiredQuantity decimal.Decimal
	Unit             domain.Unit
}

type Service struct {
	repo     Repository
	audit    Auditor
	logger   logrus.FieldLogger
	rounding domain.Rounding
	now      func() time.Time
}

func NewService(repo Repository, auditor Auditor, logger logrus.FieldLogger, rounding domain.Rounding) *Service {
	return &Service{repo: repo, audit: auditor, logger: logger, rounding: rounding, now: time.Now}
}

func (s *Service) CreateDish(ctx context.Context, name string, price decimal.Decimal, reqs []Requirement) (domain.Dish, error) {
	d := domain.Dish{Name: strings.TrimSpace(name), Price: price, Ingredients: toDishIngredients(reqs)}
	if err := d.Validate(); err != nil {
		return domain.Dish{}, err
	}
	if err := checkDistinct(reqs); err != nil {
		return domain.Dish{}, err
	}

	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return domain.Dish{}, fmt.Errorf("create dish: %w", err)
	}
	s.record(ctx, created.ID, models.AuditActionCreate, "dish created", map[string]any{"name": created.Name, "price": created.Price})
	return created, nil
}

func (s *Service) GetDish(ctx context.Context, id uint) (domain.Dish, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListDishes(ctx context.Context, page, size int) ([]domain.Dish, error) {
	if page < 0 || size <= 0 {
		return nil, domain.NewValidationError("page", "page must be >= 0 and size > 0")
	}
	return s.repo.FindAll(ctx, page, size)
}

// UpdateDishIngredients replaces the bill of materials as a whole.
func (s *Service) UpdateDishIngredients(ctx context.Context, id uint, reqs []Requirement) (domain.Dish, error) {
	items := toDishIngredients(reqs)
	if err := domain.ValidateDishIngredients(items); err != nil {
		return domain.Dish{}, err
	}
	if err := checkDistinct(reqs); err != nil {
		return domain.Dish{}, err
	}

	d, err := s.repo.ReplaceIngredients(ctx, id, items)
	if err != nil {
		return domain.Dish{}, fmt.Errorf("update ingredients of dish %d: %w", id, err)
	}
	s.record(ctx, id, models.AuditActionUpdate, fmt.Sprintf("%d ingredient(s) set", len(items)), reqs)
	return d, nil
}

type Summary struct {
	Dish               domain.Dish
	At                 time.Time
	Cost               decimal.Decimal
	Margin             decimal.Decimal
	ProducibleQuantity int64
	Rounding           domain.Rounding
}

// Summary evaluates cost, margin and producible quantity at one instant (now when zero).
// Cost uses the current prices; stock is read as of at.
func (s *Service) Summary(ctx context.Context, id uint, at time.Time) (Summary, error) {
	if at.IsZero() {
		at = s.now()
	}
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Dish:               d,
		At:                 at,
		Cost:               d.TotalIngredientCost(),
		Margin:             d.GrossMargin(),
		ProducibleQuantity: d.ProducibleQuantityWith(at, s.rounding),
		Rounding:           s.rounding,
	}, nil
}

func toDishIngredients(reqs []Requirement) []domain.DishIngredient {
	items := make([]domain.DishIngredient, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, domain.DishIngredient{
			Ingredient:       domain.Ingredient{ID: r.IngredientID},
			RequiredQuantity: r.RequiredQuantity,
			Unit:             r.Unit,
		})
	}
	return items
}

func checkDistinct(reqs []Requirement) error {
	seen := make(map[uint]bool, len(reqs))
	for _, r := range reqs {
		if seen[r.IngredientID] {
			return domain.NewValidationError("ingredients", fmt.Sprintf("ingredient %d listed twice", r.IngredientID))
		}
		seen[r.IngredientID] = true
	}
	return nil
}

func (s *Service) record(ctx context.Context, id uint, action models.AuditAction, description string, after any) {
	err := s.audit.Write(ctx, audit.LogOptions{
		EntityType:  "dish",
		EntityID:    id,
		Action:      action,
		Description: description,
		After:       after,
	})
	if err != nil {
		logging.LogError(s.logger, "menu", "record", "audit write failed", id, err)
	}
}
