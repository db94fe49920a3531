package store

import (
	"context"
	"errors"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DishStore struct {
	db *gorm.DB
}

func NewDishStore(db *gorm.DB) *DishStore {
	return &DishStore{db: db}
}

func dishQuery(db *gorm.DB) *gorm.DB {
	return withLedgers(
		db.Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
			Preload("Ingredients.Ingredient"),
		"Ingredients.Ingredient.",
	)
}

// FindByID loads the dish with every ingredient and both of their ledgers.
func (s *DishStore) FindByID(ctx context.Context, id uint) (domain.Dish, error) {
	return s.findByID(s.db.WithContext(ctx), id)
}

func (s *DishStore) findByID(db *gorm.DB, id uint) (domain.Dish, error) {
	var row models.Dish
	if err := dishQuery(db).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dish{}, domain.NewDishNotFoundError(id)
		}
		return domain.Dish{}, domain.NewStorageError("find dish", err)
	}
	return toDomainDish(row)
}

func (s *DishStore) FindAll(ctx context.Context, page, size int) ([]domain.Dish, error) {
	q := dishQuery(s.db.WithContext(ctx)).Order("id asc")
	if size > 0 {
		q = q.Offset(page * size).Limit(size)
	}
	var rows []models.Dish
	if err := q.Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("list dishes", err)
	}
	return toDomainDishes(rows)
}

// FindByIDs returns the dishes found, keyed by id. Missing ids are simply absent.
func (s *DishStore) FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Dish, error) {
	out := make(map[uint]domain.Dish, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Dish
	if err := dishQuery(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("find dishes", err)
	}
	dishes, err := toDomainDishes(rows)
	if err != nil {
		return nil, err
	}
	for _, d := range dishes {
		out[d.ID] = d
	}
	return out, nil
}

func (s *DishStore) Create(ctx context.Context, d domain.Dish) (domain.Dish, error) {
	var result domain.Dish
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Dish{Name: d.Name, Price: d.Price}
		if err := tx.Create(&row).Error; err != nil {
			return domain.NewStorageError("create dish", err)
		}
		if err := insertDishIngredients(tx, row.ID, d.Ingredients); err != nil {
			return err
		}
		var err error
		result, err = s.findByID(tx, row.ID)
		return err
	})
	return result, err
}

// ReplaceIngredients swaps the whole bill of materials of a dish.
func (s *DishStore) ReplaceIngredients(ctx context.Context, dishID uint, items []domain.DishIngredient) (domain.Dish, error) {
	var result domain.Dish
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Dish{}).Where("id = ?", dishID).Count(&count).Error; err != nil {
			return domain.NewStorageError("check dish", err)
		}
		if count == 0 {
			return domain.NewDishNotFoundError(dishID)
		}
		if err := tx.Where("dish_id = ?", dishID).Delete(&models.DishIngredient{}).Error; err != nil {
			return domain.NewStorageError("clear dish ingredients", err)
		}
		if err := insertDishIngredients(tx, dishID, items); err != nil {
			return err
		}
		var err error
		result, err = s.findByID(tx, dishID)
		return err
	})
	return result, err
}

func insertDishIngredients(tx *gorm.DB, dishID uint, items []domain.DishIngredient) error {
	for _, di := range items {
		if err := ensureIngredient(tx, di.Ingredient.ID); err != nil {
			return err
		}
		row := models.DishIngredient{
			DishID:           dishID,
			IngredientID:     di.Ingredient.ID,
			RequiredQuantity: di.RequiredQuantity,
			Unit:             string(di.Unit),
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return domain.NewStorageError("create dish ingredient", err)
		}
	}
	return nil
}

func toDomainDishes(rows []models.Dish) ([]domain.Dish, error) {
	out := make([]domain.Dish, 0, len(rows))
	for _, r := range rows {
		d, err := toDomainDish(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
