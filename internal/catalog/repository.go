package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("book not found")
	ErrISBNExists = errors.New("book with this ISBN already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	List(ctx context.Context, filter ListFilter) ([]Book, int64, error)
	Create(ctx context.Context, b *Book) (*Book, error)
	Update(ctx context.Context, id int64, update BookUpdate) (*Book, error)
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	Authors(ctx context.Context) ([]string, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const bookColumns = `id, title, author, isbn, description, category, price, rent_price,
	available, stock_quantity, publication_year, publisher, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1`, bookColumns)
	return scanBook(r.db.QueryRow(ctx, query, id))
}

func (r *postgresRepository) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE isbn = $1`, bookColumns)
	return scanBook(r.db.QueryRow(ctx, query, isbn))
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Book, int64, error) {
	where := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if filter.AvailableOnly {
		where = append(where, "available = TRUE")
	}
	if filter.Search != nil {
		args = append(args, "%"+*filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if filter.Category != nil {
		args = append(args, "%"+*filter.Category+"%")
		where = append(where, fmt.Sprintf("category ILIKE $%d", len(args)))
	}
	if filter.Author != nil {
		args = append(args, "%"+*filter.Author+"%")
		where = append(where, fmt.Sprintf("author ILIKE $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM books" + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count books: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	listQuery := fmt.Sprintf("SELECT %s FROM books%s ORDER BY id LIMIT $%d OFFSET $%d",
		bookColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query books: %w", err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *postgresRepository) Create(ctx context.Context, b *Book) (*Book, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO books (title, author, isbn, description, category, price, rent_price,
			available, stock_quantity, publication_year, publisher, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		b.Title, b.Author, b.ISBN, b.Description, b.Category, b.Price, b.RentPrice,
		b.Available, b.StockQuantity, b.PublicationYear, b.Publisher, now, now,
	).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrISBNExists
		}
		return nil, fmt.Errorf("repository: failed to insert book: %w", err)
	}

	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, update BookUpdate) (*Book, error) {
	set := make([]string, 0, 12)
	args := make([]interface{}, 0, 12)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Author != nil {
		add("author", *update.Author)
	}
	if update.ISBN != nil {
		add("isbn", *update.ISBN)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.RentPrice != nil {
		add("rent_price", *update.RentPrice)
	}
	if update.Available != nil {
		add("available", *update.Available)
	}
	if update.StockQuantity != nil {
		add("stock_quantity", *update.StockQuantity)
	}
	if update.PublicationYear != nil {
		add("publication_year", *update.PublicationYear)
	}
	if update.Publisher != nil {
		add("publisher", *update.Publisher)
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), bookColumns)

	book, err := scanBook(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrISBNExists
		}
		return nil, err
	}
	return book, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete book %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Categories(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "SELECT DISTINCT category FROM books WHERE category IS NOT NULL ORDER BY category")
}

func (r *postgresRepository) Authors(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "SELECT DISTINCT author FROM books ORDER BY author")
}

func (r *postgresRepository) distinctColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query distinct values: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("repository: failed to scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating distinct values: %w", err)
	}
	return values, nil
}

func scanBook(row pgx.Row) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Category,
		&b.Price, &b.RentPrice, &b.Available, &b.StockQuantity,
		&b.PublicationYear, &b.Publisher, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to scan book: %w", err)
	}
	return &b, nil
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
	books := make([]Book, 0)
	for rows.Next() {
		var b Book
		err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Category,
			&b.Price, &b.RentPrice, &b.Available, &b.StockQuantity,
			&b.PublicationYear, &b.Publisher, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan book row: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating book rows: %w", err)
	}
	return books, nil
}
