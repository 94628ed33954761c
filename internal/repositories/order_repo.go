package repositories

import (
	"context"
	"fmt"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/google/uuid"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error)
}

type orderRepo struct {
	db DB
}

func NewOrderRepo(db DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id, customer_name, customer_contact, total_amount, status, created_at, updated_at`

// Create inserts the order header only; line items go through OrderItemRepository
func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, customer_name, customer_contact, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var customerName, customerContact *string
	if order.Customer != nil {
		customerName = &order.Customer.Name
		customerContact = &order.Customer.Contact
	}
	_, err := r.db.Exec(ctx, query, order.ID, customerName, customerContact, order.TotalAmount, order.Status, order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// UpdateStatus writes only the status and its timestamp. Items and total are never touched.
func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM orders WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// List returns order headers matching the filter, newest first unless the filter asks otherwise
func (r *orderRepo) List(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter == nil {
		filter = &models.OrderFilter{}
	}
	if filter.From != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		argCount++
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
	}
	if q := common.SanitizeSearchQuery(filter.Query); q != "" {
		argCount++
		query += fmt.Sprintf(` AND (id::text ILIKE $%d ESCAPE '\' OR COALESCE(customer_name, '') ILIKE $%d ESCAPE '\' OR COALESCE(customer_contact, '') ILIKE $%d ESCAPE '\')`, argCount, argCount, argCount)
		args = append(args, common.ContainsPattern(q))
	}

	if filter.Ascending() {
		query += " ORDER BY created_at ASC"
	} else {
		query += " ORDER BY created_at DESC"
	}

	limit, offset := common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, limit)
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var customerName, customerContact *string
	if err := row.Scan(&order.ID, &customerName, &customerContact, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	if customerName != nil || customerContact != nil {
		order.Customer = &models.Customer{
			Name:    common.SafeString(customerName),
			Contact: common.SafeString(customerContact),
		}
	}
	return order, nil
}
