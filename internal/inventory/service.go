// Package inventory manages ingredients and their price and stock ledgers.
package inventory

import (
	"context"
	"fmt"
	"time"

	"restaurant-backend/internal/audit"
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/logging"
	"restaurant-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	Create(ctx context.Context, names []string) ([]domain.Ingredient, error)
	FindByID(ctx context.Context, id uint) (domain.Ingredient, error)
	FindAll(ctx context.Context, page, size int) ([]domain.Ingredient, error)
	AppendPrices(ctx context.Context, id uint, entries []domain.PriceEntry) (domain.Ingredient, error)
	AppendMovements(ctx context.Context, id uint, movements []domain.StockMovement) (domain.Ingredient, error)
}

type Auditor interface {
	Write(ctx context.Context, opts audit.LogOptions) error
}

type Service struct {
	repo   Repository
	audit  Auditor
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewService(repo Repository, auditor Auditor, logger logrus.FieldLogger) *Service {
	return &Service{repo: repo, audit: auditor, logger: logger, now: time.Now}
}

// CreateIngredients creates the whole batch or nothing.
func (s *Service) CreateIngredients(ctx context.Context, names []string) ([]domain.Ingredient, error) {
	if len(names) == 0 {
		return nil, domain.NewValidationError("ingredients", "at least one ingredient is required")
	}
	seen := make(map[string]bool, len(names))
	clean := make([]string, 0, len(names))
	for _, n := range names {
		ing, err := domain.NewIngredient(n)
		if err != nil {
			return nil, err
		}
		if seen[ing.Name] {
			return nil, &domain.DuplicateReferenceError{Entity: "ingredient", Reference: ing.Name}
		}
		seen[ing.Name] = true
		clean = append(clean, ing.Name)
	}

	created, err := s.repo.Create(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("create ingredients: %w", err)
	}
	for _, ing := range created {
		s.record(ctx, ing.ID, models.AuditActionCreate, "ingredient created", map[string]any{"name": ing.Name})
	}
	return created, nil
}

func (s *Service) GetIngredient(ctx context.Context, id uint) (domain.Ingredient, error) {
	return s.repo.FindByID(ctx, id)
}

type ListQuery struct {
	Page     int
	Size     int
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}

// ListIngredients filters on the current price, then pages through the matches.
func (s *Service) ListIngredients(ctx context.Context, q ListQuery) ([]domain.Ingredient, error) {
	if q.Page < 0 || q.Size <= 0 {
		return nil, domain.NewValidationError("page", "page must be >= 0 and size > 0")
	}
	if q.PriceMin != nil && q.PriceMin.IsNegative() {
		return nil, domain.NewValidationError("priceMin", "must not be negative")
	}
	if q.PriceMax != nil && q.PriceMax.IsNegative() {
		return nil, domain.NewValidationError("priceMax", "must not be negative")
	}
	if q.PriceMin != nil && q.PriceMax != nil && q.PriceMin.GreaterThan(*q.PriceMax) {
		return nil, domain.NewValidationError("priceMin", "must not be greater than priceMax")
	}

	if q.PriceMin == nil && q.PriceMax == nil {
		return s.repo.FindAll(ctx, q.Page, q.Size)
	}

	all, err := s.repo.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Ingredient, 0, len(all))
	for _, ing := range all {
		price := ing.ActualPrice()
		if q.PriceMin != nil && price.LessThan(*q.PriceMin) {
			continue
		}
		if q.PriceMax != nil && price.GreaterThan(*q.PriceMax) {
			continue
		}
		matched = append(matched, ing)
	}
	start := q.Page * q.Size
	if start >= len(matched) {
		return []domain.Ingredient{}, nil
	}
	end := start + q.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *Service) AddPrices(ctx context.Context, id uint, entries []domain.PriceEntry) (domain.Ingredient, error) {
	if len(entries) == 0 {
		return domain.Ingredient{}, domain.NewValidationError("prices", "at least one price is required")
	}
	if _, err := domain.NewPriceLedger(entries...); err != nil {
		return domain.Ingredient{}, err
	}

	ing, err := s.repo.AppendPrices(ctx, id, entries)
	if err != nil {
		return domain.Ingredient{}, fmt.Errorf("add prices to ingredient %d: %w", id, err)
	}
	s.record(ctx, id, models.AuditActionUpdate, fmt.Sprintf("%d price(s) added", len(entries)), entries)
	return ing, nil
}

// AddStockMovements appends the batch atomically. A movement without a timestamp is
// stamped with the current time.
func (s *Service) AddStockMovements(ctx context.Context, id uint, movements []domain.StockMovement) (domain.Ingredient, error) {
	if len(movements) == 0 {
		return domain.Ingredient{}, domain.NewValidationError("movements", "at least one movement is required")
	}
	now := s.now()
	stamped := make([]domain.StockMovement, len(movements))
	for i, m := range movements {
		if m.OccurredAt.IsZero() {
			m.OccurredAt = now
		}
		stamped[i] = m
	}
	if _, err := domain.NewStockLedger(stamped...); err != nil {
		return domain.Ingredient{}, err
	}

	ing, err := s.repo.AppendMovements(ctx, id, stamped)
	if err != nil {
		return domain.Ingredient{}, fmt.Errorf("add stock movements to ingredient %d: %w", id, err)
	}
	s.record(ctx, id, models.AuditActionUpdate, fmt.Sprintf("%d stock movement(s) added", len(stamped)), stamped)
	return ing, nil
}

// Availability evaluates the stock ledger at a single instant; zero at means now.
func (s *Service) Availability(ctx context.Context, id uint, at time.Time) (domain.Ingredient, decimal.Decimal, time.Time, error) {
	if at.IsZero() {
		at = s.now()
	}
	ing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Ingredient{}, decimal.Zero, at, err
	}
	return ing, ing.AvailableQuantityAt(at), at, nil
}

func (s *Service) record(ctx context.Context, id uint, action models.AuditAction, description string, after any) {
	err := s.audit.Write(ctx, audit.LogOptions{
		EntityType:  "ingredient",
		EntityID:    id,
		Action:      action,
		Description: description,
		After:       after,
	})
	if err != nil {
		logging.LogError(s.logger, "inventory", "record", "audit write failed", id, err)
	}
}
