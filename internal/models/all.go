package models

// All lists every table, in migration order.
func All() []any {
	return []any{
		&User{},
		&AuditLog{},
		&Ingredient{},
		&IngredientPrice{},
		&StockMovement{},
		&Dish{},
		&DishIngredient{},
		&Order{},
		&OrderStatusEntry{},
		&DishOrder{},
		&DishOrderStatusEntry{},
	}
}
