package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/senecabooks/bookstore-services/internal/clients"
)

var (
	ErrInvalidOrderType     = errors.New("invalid order type")
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 10")
	ErrRentalDaysRequired   = errors.New("rental days are required and must be at least 1 for rent orders")
	ErrRentalDaysNotAllowed = errors.New("rental days should not be specified for buy orders")
	ErrBookUnavailable      = errors.New("book is not available")
)

// InsufficientStockError carries the catalog's current stock count so the
// caller can report it.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock, available: %d", e.Available)
}

// BookLookup fetches point-in-time book data from the catalog service.
// Stock is not reserved; concurrent orders can both pass the stock check.
type BookLookup interface {
	GetBook(ctx context.Context, bookID int64) (*clients.BookInfo, error)
}

type CreateInput struct {
	BookID     int64
	OrderType  Type
	Quantity   int
	RentalDays *int
	Notes      *string
}

type Service interface {
	CreateOrder(ctx context.Context, userID int64, input CreateInput) (*Order, error)
	GetOrder(ctx context.Context, id int64, userID *int64) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id int64, userID *int64, status Status, notes *string) (*Order, error)
	ReturnRental(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*Order, error)
	Summary(ctx context.Context, userID int64) (*Summary, error)
	ActiveRentals(ctx context.Context, userID int64) ([]Order, error)
	OverdueRentals(ctx context.Context, userID *int64) ([]Order, error)
	AdminSummary(ctx context.Context) (*AdminSummary, error)
	SeedOrders(ctx context.Context, userID int64) ([]Order, error)
}

type service struct {
	repo    Repository
	catalog BookLookup
}

func NewService(repo Repository, catalog BookLookup) Service {
	return &service{repo: repo, catalog: catalog}
}

// CreateOrder validates the request against current catalog data, computes
// pricing and persists an auto-confirmed order with the book snapshot.
//
// Pricing: buy orders cost price * quantity; rent orders cost
// rent_price * rental_days * quantity.
func (s *service) CreateOrder(ctx context.Context, userID int64, input CreateInput) (*Order, error) {
	if !input.OrderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	if input.Quantity < 1 || input.Quantity > 10 {
		return nil, ErrInvalidQuantity
	}
	switch input.OrderType {
	case TypeRent:
		if input.RentalDays == nil || *input.RentalDays < 1 || *input.RentalDays > 365 {
			return nil, ErrRentalDaysRequired
		}
	case TypeBuy:
		if input.RentalDays != nil {
			return nil, ErrRentalDaysNotAllowed
		}
	}

	book, err := s.catalog.GetBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	if !book.Available {
		return nil, ErrBookUnavailable
	}
	if book.StockQuantity < input.Quantity {
		return nil, &InsufficientStockError{Available: book.StockQuantity}
	}

	o := &Order{
		UserID:     userID,
		BookID:     input.BookID,
		OrderType:  input.OrderType,
		Status:     StatusConfirmed,
		BookTitle:  book.Title,
		BookAuthor: book.Author,
		BookISBN:   book.ISBN,
		Quantity:   input.Quantity,
		Notes:      input.Notes,
	}

	if input.OrderType == TypeBuy {
		o.UnitPrice = book.Price
		o.TotalAmount = book.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
	} else {
		days := *input.RentalDays
		start := time.Now().UTC()
		end := start.AddDate(0, 0, days)

		o.UnitPrice = book.RentPrice
		o.TotalAmount = book.RentPrice.
			Mul(decimal.NewFromInt(int64(days))).
			Mul(decimal.NewFromInt(int64(input.Quantity)))
		o.RentalDays = &days
		o.RentalStartDate = &start
		o.RentalEndDate = &end
	}

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Int64("book_id", input.BookID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Int64("order_id", created.ID).
		Int64("user_id", userID).
		Str("order_type", string(created.OrderType)).
		Str("total_amount", created.TotalAmount.String()).
		Msg("service: order created")
	return created, nil
}

func (s *service) GetOrder(ctx context.Context, id int64, userID *int64) (*Order, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateStatus(ctx context.Context, id int64, userID *int64, status Status, notes *string) (*Order, error) {
	updated, err := s.repo.UpdateStatus(ctx, id, userID, status, notes)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("order_id", id).Str("status", string(status)).Msg("service: order status updated")
	return updated, nil
}

func (s *service) ReturnRental(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*Order, error) {
	returnedAt := time.Now().UTC()
	if returnDate != nil {
		returnedAt = *returnDate
	}

	returned, err := s.repo.ReturnRental(ctx, id, userID, returnedAt, notes)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("order_id", id).Int64("user_id", userID).Msg("service: rental returned")
	return returned, nil
}

func (s *service) Summary(ctx context.Context, userID int64) (*Summary, error) {
	return s.repo.Summary(ctx, userID)
}

func (s *service) ActiveRentals(ctx context.Context, userID int64) ([]Order, error) {
	return s.repo.ActiveRentals(ctx, userID)
}

func (s *service) OverdueRentals(ctx context.Context, userID *int64) ([]Order, error) {
	return s.repo.OverdueRentals(ctx, userID, time.Now().UTC())
}

func (s *service) AdminSummary(ctx context.Context) (*AdminSummary, error) {
	return s.repo.AdminSummary(ctx, time.Now().UTC())
}

// SeedOrders creates one sample purchase and one sample rental with fixed
// book data, skipping the catalog lookup. Development helper only.
func (s *service) SeedOrders(ctx context.Context, userID int64) ([]Order, error) {
	samples := []struct {
		bookID     int64
		orderType  Type
		rentalDays *int
		notes      string
	}{
		{bookID: 1, orderType: TypeBuy, notes: "Sample purchase order"},
		{bookID: 2, orderType: TypeRent, rentalDays: intPtr(7), notes: "Sample rental order"},
	}

	created := make([]Order, 0, len(samples))
	for _, sample := range samples {
		isbn := fmt.Sprintf("978-%010d", sample.bookID)
		notes := sample.notes

		o := &Order{
			UserID:     userID,
			BookID:     sample.bookID,
			OrderType:  sample.orderType,
			Status:     StatusConfirmed,
			BookTitle:  fmt.Sprintf("Sample Book %d", sample.bookID),
			BookAuthor: "Sample Author",
			BookISBN:   &isbn,
			Quantity:   1,
			Notes:      &notes,
		}

		if sample.orderType == TypeBuy {
			o.UnitPrice = decimal.NewFromFloat(29.99)
			o.TotalAmount = o.UnitPrice
		} else {
			days := *sample.rentalDays
			start := time.Now().UTC()
			end := start.AddDate(0, 0, days)

			o.UnitPrice = decimal.NewFromFloat(3.99)
			o.TotalAmount = o.UnitPrice.Mul(decimal.NewFromInt(int64(days)))
			o.RentalDays = &days
			o.RentalStartDate = &start
			o.RentalEndDate = &end
		}

		out, err := s.repo.Create(ctx, o)
		if err != nil {
			log.Warn().Err(err).Int64("book_id", sample.bookID).Msg("service: skipping sample order")
			continue
		}
		created = append(created, *out)
	}
	return created, nil
}

func intPtr(n int) *int { return &n }
