package store

import (
	"context"
	"errors"
	"time"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func orderQuery(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }
	return db.
		Preload("History", byID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Lines.History", byID)
}

func (s *OrderStore) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	return findOrder(s.db.WithContext(ctx), reference)
}

func findOrder(db *gorm.DB, reference string) (*domain.Order, error) {
	var row models.Order
	if err := orderQuery(db).Where("reference = ?", reference).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("order", reference)
		}
		return nil, domain.NewStorageError("find order", err)
	}
	return toDomainOrder(row), nil
}

func (s *OrderStore) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	return existsByReference(s.db.WithContext(ctx), reference)
}

func existsByReference(db *gorm.DB, reference string) (bool, error) {
	var count int64
	if err := db.Model(&models.Order{}).Where("reference = ?", reference).Count(&count).Error; err != nil {
		return false, domain.NewStorageError("check order reference", err)
	}
	return count > 0, nil
}

// Create persists a new order with its lines and both histories. The returned order
// carries the generated ids.
func (s *OrderStore) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := existsByReference(tx, o.Reference)
		if err != nil {
			return err
		}
		if exists {
			return &domain.DuplicateReferenceError{Entity: "order", Reference: o.Reference}
		}

		row := models.Order{
			Reference: o.Reference,
			Status:    string(o.Status()),
			CreatedAt: o.CreatedAt,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.DuplicateReferenceError{Entity: "order", Reference: o.Reference}
			}
			return domain.NewStorageError("create order", err)
		}
		if err := insertOrderHistory(tx, row.ID, o.History()); err != nil {
			return err
		}
		for i, l := range o.Lines() {
			if err := insertLine(tx, row.ID, i, l); err != nil {
				return err
			}
		}

		result, err = findOrder(tx, o.Reference)
		return err
	})
	return result, err
}

// Save writes the order back in one transaction. The stored version must still match
// o.Version, otherwise nothing is written and a ConcurrentUpdateError is returned.
// Histories are append-only, so only entries past the stored count are inserted.
func (s *OrderStore) Save(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"status":     string(o.Status()),
				"version":    o.Version + 1,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return domain.NewStorageError("update order", res.Error)
		}
		if res.RowsAffected == 0 {
			return &domain.ConcurrentUpdateError{Reference: o.Reference, Version: o.Version}
		}

		var stored int64
		if err := tx.Model(&models.OrderStatusEntry{}).Where("order_id = ?", o.ID).Count(&stored).Error; err != nil {
			return domain.NewStorageError("count order history", err)
		}
		if history := o.History(); int(stored) < len(history) {
			if err := insertOrderHistory(tx, o.ID, history[stored:]); err != nil {
				return err
			}
		}

		lines := o.Lines()
		keep := make([]uint, 0, len(lines))
		for _, l := range lines {
			if l.ID != 0 {
				keep = append(keep, l.ID)
			}
		}
		if err := deleteLinesExcept(tx, o.ID, keep); err != nil {
			return err
		}

		for i, l := range lines {
			if l.ID == 0 {
				if err := insertLine(tx, o.ID, i, l); err != nil {
					return err
				}
				continue
			}
			if err := updateLine(tx, i, l); err != nil {
				return err
			}
		}

		var err error
		result, err = findOrder(tx, o.Reference)
		return err
	})
	return result, err
}

// FindByStatus returns orders whose current status is st, oldest first.
func (s *OrderStore) FindByStatus(ctx context.Context, st domain.Status) ([]*domain.Order, error) {
	var rows []models.Order
	if err := orderQuery(s.db.WithContext(ctx)).Where("status = ?", string(st)).Order("id asc").Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("find orders by status", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDomainOrder(r))
	}
	return out, nil
}

// LineTimestamp is the kitchen's view of one line: when cooking started and ended.
type LineTimestamp struct {
	DishOrderID    uint
	OrderReference string
	DishID         uint
	DishName       string
	Quantity       int
	Status         domain.Status
	PreparedAt     *time.Time
	FinishedAt     *time.Time
}

func (s *OrderStore) LineTimestamps(ctx context.Context, page, size int) ([]LineTimestamp, error) {
	db := s.db.WithContext(ctx)
	q := db.Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).Order("id asc")
	if size > 0 {
		q = q.Offset(page * size).Limit(size)
	}
	var lines []models.DishOrder
	if err := q.Find(&lines).Error; err != nil {
		return nil, domain.NewStorageError("list dish orders", err)
	}

	orderIDs := make([]uint, 0, len(lines))
	for _, l := range lines {
		orderIDs = append(orderIDs, l.OrderID)
	}
	refs := make(map[uint]string)
	if len(orderIDs) > 0 {
		var orders []models.Order
		if err := db.Select("id", "reference").Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
			return nil, domain.NewStorageError("load order references", err)
		}
		for _, o := range orders {
			refs[o.ID] = o.Reference
		}
	}

	out := make([]LineTimestamp, 0, len(lines))
	for _, l := range lines {
		ts := LineTimestamp{
			DishOrderID:    l.ID,
			OrderReference: refs[l.OrderID],
			DishID:         l.DishID,
			DishName:       l.DishName,
			Quantity:       l.Quantity,
			Status:         domain.Status(l.Status),
		}
		for _, h := range l.History {
			at := h.ChangedAt
			switch domain.Status(h.Status) {
			case domain.StatusInPreparation:
				if ts.PreparedAt == nil {
					ts.PreparedAt = &at
				}
			case domain.StatusFinished:
				if ts.FinishedAt == nil {
					ts.FinishedAt = &at
				}
			}
		}
		out = append(out, ts)
	}
	return out, nil
}

func insertOrderHistory(tx *gorm.DB, orderID uint, entries []domain.StatusEntry) error {
	for _, e := range entries {
		row := models.OrderStatusEntry{OrderID: orderID, Status: string(e.Status), ChangedAt: e.ChangedAt}
		if err := tx.Create(&row).Error; err != nil {
			return domain.NewStorageError("append order history", err)
		}
	}
	return nil
}

func insertLineHistory(tx *gorm.DB, lineID uint, entries []domain.StatusEntry) error {
	for _, e := range entries {
		row := models.DishOrderStatusEntry{DishOrderID: lineID, Status: string(e.Status), ChangedAt: e.ChangedAt}
		if err := tx.Create(&row).Error; err != nil {
			return domain.NewStorageError("append dish order history", err)
		}
	}
	return nil
}

func insertLine(tx *gorm.DB, orderID uint, position int, l domain.DishOrder) error {
	row := models.DishOrder{
		OrderID:   orderID,
		DishID:    l.Dish.DishID,
		DishName:  l.Dish.Name,
		UnitPrice: l.Dish.UnitPrice,
		Quantity:  l.Quantity,
		Position:  position,
		Status:    string(l.Status()),
	}
	if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
		return domain.NewStorageError("create dish order", err)
	}
	return insertLineHistory(tx, row.ID, l.History())
}

func updateLine(tx *gorm.DB, position int, l domain.DishOrder) error {
	if err := tx.Model(&models.DishOrder{}).Where("id = ?", l.ID).Updates(map[string]any{
		"status":   string(l.Status()),
		"position": position,
	}).Error; err != nil {
		return domain.NewStorageError("update dish order", err)
	}
	var stored int64
	if err := tx.Model(&models.DishOrderStatusEntry{}).Where("dish_order_id = ?", l.ID).Count(&stored).Error; err != nil {
		return domain.NewStorageError("count dish order history", err)
	}
	history := l.History()
	if int(stored) >= len(history) {
		return nil
	}
	return insertLineHistory(tx, l.ID, history[stored:])
}

func deleteLinesExcept(tx *gorm.DB, orderID uint, keep []uint) error {
	q := tx.Model(&models.DishOrder{}).Where("order_id = ?", orderID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	var gone []uint
	if err := q.Pluck("id", &gone).Error; err != nil {
		return domain.NewStorageError("find replaced dish orders", err)
	}
	if len(gone) == 0 {
		return nil
	}
	if err := tx.Where("dish_order_id IN ?", gone).Delete(&models.DishOrderStatusEntry{}).Error; err != nil {
		return domain.NewStorageError("delete replaced dish order history", err)
	}
	if err := tx.Where("id IN ?", gone).Delete(&models.DishOrder{}).Error; err != nil {
		return domain.NewStorageError("delete replaced dish orders", err)
	}
	return nil
}
