package store

import (
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/models"
)

func toDomainIngredient(row models.Ingredient) (domain.Ingredient, error) {
	prices := make([]domain.PriceEntry, 0, len(row.Prices))
	for _, p := range row.Prices {
		prices = append(prices, domain.PriceEntry{ID: p.ID, Amount: p.Amount, EffectiveDate: p.EffectiveDate.UTC()})
	}
	priceLedger, err := domain.NewPriceLedger(prices...)
	if err != nil {
		return domain.Ingredient{}, domain.NewStorageError("load prices", err)
	}

	moves := make([]domain.StockMovement, 0, len(row.Movements))
	for _, m := range row.Movements {
		moves = append(moves, domain.StockMovement{
			ID:         m.ID,
			Quantity:   m.Quantity,
			Unit:       domain.Unit(m.Unit),
			Type:       domain.MovementType(m.MovementType),
			OccurredAt: m.OccurredAt,
		})
	}
	stock, err := domain.NewStockLedger(moves...)
	if err != nil {
		return domain.Ingredient{}, domain.NewStorageError("load stock movements", err)
	}

	return domain.Ingredient{ID: row.ID, Name: row.Name, Prices: priceLedger, Stock: stock}, nil
}

func toDomainDish(row models.Dish) (domain.Dish, error) {
	d := domain.Dish{ID: row.ID, Name: row.Name, Price: row.Price}
	for _, di := range row.Ingredients {
		ing, err := toDomainIngredient(di.Ingredient)
		if err != nil {
			return domain.Dish{}, err
		}
		d.Ingredients = append(d.Ingredients, domain.DishIngredient{
			Ingredient:       ing,
			RequiredQuantity: di.RequiredQuantity,
			Unit:             domain.Unit(di.Unit),
		})
	}
	return d, nil
}

func toDomainOrder(row models.Order) *domain.Order {
	history := make([]domain.StatusEntry, 0, len(row.History))
	for _, h := range row.History {
		history = append(history, domain.StatusEntry{Status: domain.Status(h.Status), ChangedAt: h.ChangedAt})
	}
	lines := make([]domain.DishOrder, 0, len(row.Lines))
	for _, l := range row.Lines {
		lh := make([]domain.StatusEntry, 0, len(l.History))
		for _, h := range l.History {
			lh = append(lh, domain.StatusEntry{Status: domain.Status(h.Status), ChangedAt: h.ChangedAt})
		}
		lines = append(lines, domain.RestoreDishOrder(
			l.ID,
			l.OrderID,
			domain.DishSnapshot{DishID: l.DishID, Name: l.DishName, UnitPrice: l.UnitPrice},
			l.Quantity,
			lh,
		))
	}
	return domain.RestoreOrder(row.ID, row.Reference, row.CreatedAt, row.Version, history, lines)
}
