package repositories

import (
	"context"

	"restaurantpos/internal/models"

	"github.com/google/uuid"
)

type OrderItemRepository interface {
	CreateBatch(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderLineItem, error)
}

type orderItemRepo struct {
	db DB
}

func NewOrderItemRepo(db DB) OrderItemRepository {
	return &orderItemRepo{db: db}
}

// CreateBatch inserts all lines of one order in a single transaction: either every line lands or none does
func (r *orderItemRepo) CreateBatch(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error {
	query := `
		INSERT INTO order_items (id, order_id, menu_item_id, name, price, quantity, subtotal, line_no, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err := tx.Exec(ctx, query, item.ID, orderID, item.MenuItemID, item.Name, item.Price, item.Quantity, item.Subtotal, item.LineNo, item.CreatedAt); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByOrderIDs batch-loads the lines of many orders, grouped by order and kept in insertion order
func (r *orderItemRepo) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderLineItem, error) {
	grouped := make(map[uuid.UUID][]models.OrderLineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}

	query := `
		SELECT id, order_id, menu_item_id, name, price, quantity, subtotal, line_no, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderLineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Price, &item.Quantity, &item.Subtotal, &item.LineNo, &item.CreatedAt); err != nil {
			return nil, err
		}
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}
	return grouped, rows.Err()
}
