package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

const orderColumns = `id, user_id, book_id, order_type, status,
	book_title, book_author, book_isbn,
	unit_price, quantity, total_amount,
	rental_days, rental_start_date, rental_end_date, rental_returned_date,
	notes, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, o *Order) (*Order, error)
	GetByID(ctx context.Context, id int64, userID *int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id int64, userID *int64, status Status, notes *string) (*Order, error)
	ReturnRental(ctx context.Context, id, userID int64, returnedAt time.Time, notes *string) (*Order, error)
	Summary(ctx context.Context, userID int64) (*Summary, error)
	ActiveRentals(ctx context.Context, userID int64) ([]Order, error)
	OverdueRentals(ctx context.Context, userID *int64, now time.Time) ([]Order, error)
	AdminSummary(ctx context.Context, now time.Time) (*AdminSummary, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (*Order, error) {
	query := `
		INSERT INTO orders (user_id, book_id, order_type, status,
			book_title, book_author, book_isbn,
			unit_price, quantity, total_amount,
			rental_days, rental_start_date, rental_end_date,
			notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query,
		o.UserID, o.BookID, o.OrderType, o.Status,
		o.BookTitle, o.BookAuthor, o.BookISBN,
		o.UnitPrice, o.Quantity, o.TotalAmount,
		o.RentalDays, o.RentalStartDate, o.RentalEndDate,
		o.Notes,
	)

	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create order: %w", err)
	}
	return created, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64, userID *int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	args := []interface{}{id}
	if userID != nil {
		query += ` AND user_id = $2`
		args = append(args, *userID)
	}

	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order %d: %w", id, err)
	}
	return o, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}

	if filter.UserID != nil {
		add("user_id =", *filter.UserID)
	}
	if filter.OrderType != nil {
		add("order_type =", *filter.OrderType)
	}
	if filter.Status != nil {
		add("status =", *filter.Status)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to scan orders: %w", err)
	}
	return orders, total, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id int64, userID *int64, status Status, notes *string) (*Order, error) {
	query := `
		UPDATE orders
		SET status = $1, notes = COALESCE($2, notes), updated_at = NOW()
		WHERE id = $3`
	args := []interface{}{status, notes, id}
	if userID != nil {
		query += ` AND user_id = $4`
		args = append(args, *userID)
	}
	query += ` RETURNING ` + orderColumns

	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update order %d status: %w", id, err)
	}
	return o, nil
}

// ReturnRental flips an eligible rental to returned in a single guarded
// update. Zero rows means the order is missing, not a rental, not owned by
// the caller, or already past the returnable statuses; all of those surface
// as ErrNotFound.
func (r *postgresRepository) ReturnRental(ctx context.Context, id, userID int64, returnedAt time.Time, notes *string) (*Order, error) {
	query := `
		UPDATE orders
		SET status = $1, rental_returned_date = $2, notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $4
		  AND user_id = $5
		  AND order_type = $6
		  AND status IN ($7, $8)
		RETURNING ` + orderColumns

	o, err := scanOrder(r.db.QueryRow(ctx, query,
		StatusReturned, returnedAt, notes,
		id, userID, TypeRent, StatusConfirmed, StatusCompleted,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to return rental %d: %w", id, err)
	}
	return o, nil
}

func (r *postgresRepository) Summary(ctx context.Context, userID int64) (*Summary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE order_type = $2),
			COUNT(*) FILTER (WHERE order_type = $3),
			COALESCE(SUM(total_amount) FILTER (WHERE status <> $4), 0),
			COUNT(*) FILTER (WHERE order_type = $3 AND status IN ($5, $6) AND rental_returned_date IS NULL)
		FROM orders
		WHERE user_id = $1`

	var s Summary
	err := r.db.QueryRow(ctx, query,
		userID, TypeBuy, TypeRent, StatusCancelled, StatusConfirmed, StatusCompleted,
	).Scan(&s.TotalOrders, &s.TotalPurchases, &s.TotalRentals, &s.TotalAmountSpent, &s.ActiveRentals)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build summary for user %d: %w", userID, err)
	}
	return &s, nil
}

func (r *postgresRepository) ActiveRentals(ctx context.Context, userID int64) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND order_type = $2
		  AND status IN ($3, $4)
		  AND rental_returned_date IS NULL
		ORDER BY rental_end_date`

	rows, err := r.db.Query(ctx, query, userID, TypeRent, StatusConfirmed, StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list active rentals: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan active rentals: %w", err)
	}
	return orders, nil
}

func (r *postgresRepository) OverdueRentals(ctx context.Context, userID *int64, now time.Time) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE order_type = $1
		  AND status IN ($2, $3)
		  AND rental_returned_date IS NULL
		  AND rental_end_date < $4`
	args := []interface{}{TypeRent, StatusConfirmed, StatusCompleted, now}
	if userID != nil {
		query += ` AND user_id = $5`
		args = append(args, *userID)
	}
	query += ` ORDER BY rental_end_date`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list overdue rentals: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan overdue rentals: %w", err)
	}
	return orders, nil
}

func (r *postgresRepository) AdminSummary(ctx context.Context, now time.Time) (*AdminSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE order_type = $1),
			COUNT(*) FILTER (WHERE order_type = $2),
			COALESCE(SUM(total_amount) FILTER (WHERE status <> $3), 0),
			COUNT(*) FILTER (WHERE order_type = $2 AND status IN ($4, $5) AND rental_returned_date IS NULL),
			COUNT(*) FILTER (WHERE order_type = $2 AND status IN ($4, $5) AND rental_returned_date IS NULL AND rental_end_date < $6)
		FROM orders`

	var s AdminSummary
	err := r.db.QueryRow(ctx, query,
		TypeBuy, TypeRent, StatusCancelled, StatusConfirmed, StatusCompleted, now,
	).Scan(&s.TotalOrders, &s.TotalPurchases, &s.TotalRentals, &s.TotalRevenue, &s.ActiveRentals, &s.OverdueRentals)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build admin summary: %w", err)
	}
	return &s, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.BookID, &o.OrderType, &o.Status,
		&o.BookTitle, &o.BookAuthor, &o.BookISBN,
		&o.UnitPrice, &o.Quantity, &o.TotalAmount,
		&o.RentalDays, &o.RentalStartDate, &o.RentalEndDate, &o.RentalReturnedDate,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
