package store

import (
	"context"
	"errors"
	"strings"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/models"

	"gorm.io/gorm"
)

type IngredientStore struct {
	db *gorm.DB
}

func NewIngredientStore(db *gorm.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

// withLedgers preloads both ledgers in insertion order, which is what resolves
// same-date price corrections.
func withLedgers(db *gorm.DB, prefix string) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }
	return db.Preload(prefix+"Prices", byID).Preload(prefix+"Movements", byID)
}

// Create inserts all names or none. A name already taken is a DuplicateReferenceError.
func (s *IngredientStore) Create(ctx context.Context, names []string) ([]domain.Ingredient, error) {
	rows := make([]models.Ingredient, 0, len(names))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			var count int64
			if err := tx.Model(&models.Ingredient{}).Where("name = ?", name).Count(&count).Error; err != nil {
				return domain.NewStorageError("check ingredient name", err)
			}
			if count > 0 {
				return &domain.DuplicateReferenceError{Entity: "ingredient", Reference: name}
			}
			row := models.Ingredient{Name: name}
			if err := tx.Create(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &domain.DuplicateReferenceError{Entity: "ingredient", Reference: name}
				}
				return domain.NewStorageError("create ingredient", err)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Ingredient, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Ingredient{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *IngredientStore) FindByID(ctx context.Context, id uint) (domain.Ingredient, error) {
	return s.findByID(s.db.WithContext(ctx), id)
}

func (s *IngredientStore) findByID(db *gorm.DB, id uint) (domain.Ingredient, error) {
	var row models.Ingredient
	if err := withLedgers(db, "").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Ingredient{}, domain.NewNotFoundError("ingredient", id)
		}
		return domain.Ingredient{}, domain.NewStorageError("find ingredient", err)
	}
	return toDomainIngredient(row)
}

// FindAll lists ingredients by name. size <= 0 returns every row.
func (s *IngredientStore) FindAll(ctx context.Context, page, size int) ([]domain.Ingredient, error) {
	q := withLedgers(s.db.WithContext(ctx), "").Order("name asc")
	if size > 0 {
		q = q.Offset(page * size).Limit(size)
	}
	var rows []models.Ingredient
	if err := q.Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("list ingredients", err)
	}
	out := make([]domain.Ingredient, 0, len(rows))
	for _, r := range rows {
		ing, err := toDomainIngredient(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, nil
}

// ExistingIDs returns the subset of ids that exist.
func (s *IngredientStore) ExistingIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	var found []uint
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
			return nil, domain.NewStorageError("check ingredients", err)
		}
	}
	out := make(map[uint]bool, len(found))
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// AppendPrices adds the whole batch in one transaction and returns the ingredient
// with its updated ledgers.
func (s *IngredientStore) AppendPrices(ctx context.Context, id uint, entries []domain.PriceEntry) (domain.Ingredient, error) {
	var result domain.Ingredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIngredient(tx, id); err != nil {
			return err
		}
		for _, e := range entries {
			row := models.IngredientPrice{
				IngredientID:  id,
				Amount:        e.Amount,
				EffectiveDate: domain.DateOf(e.EffectiveDate),
			}
			if err := tx.Create(&row).Error; err != nil {
				return domain.NewStorageError("append price", err)
			}
		}
		var err error
		result, err = s.findByID(tx, id)
		return err
	})
	return result, err
}

func (s *IngredientStore) AppendMovements(ctx context.Context, id uint, movements []domain.StockMovement) (domain.Ingredient, error) {
	var result domain.Ingredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIngredient(tx, id); err != nil {
			return err
		}
		for _, m := range movements {
			row := models.StockMovement{
				IngredientID: id,
				Quantity:     m.Quantity,
				Unit:         strings.ToUpper(string(m.Unit)),
				MovementType: string(m.Type),
				OccurredAt:   m.OccurredAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return domain.NewStorageError("append stock movement", err)
			}
		}
		var err error
		result, err = s.findByID(tx, id)
		return err
	})
	return result, err
}

func ensureIngredient(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return domain.NewStorageError("check ingredient", err)
	}
	if count == 0 {
		return domain.NewNotFoundError("ingredient", id)
	}
	return nil
}
