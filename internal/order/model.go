package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeBuy  Type = "buy"
	TypeRent Type = "rent"
)

func (t Type) Valid() bool {
	return t == TypeBuy || t == TypeRent
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Order is a purchase or rental of a single book title. The book_* fields
// are snapshotted at creation so later catalog edits do not rewrite history.
type Order struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	BookID int64 `json:"book_id"`

	OrderType Type   `json:"order_type"`
	Status    Status `json:"status"`

	BookTitle  string  `json:"book_title"`
	BookAuthor string  `json:"book_author"`
	BookISBN   *string `json:"book_isbn"`

	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	RentalDays         *int       `json:"rental_days"`
	RentalStartDate    *time.Time `json:"rental_start_date"`
	RentalEndDate      *time.Time `json:"rental_end_date"`
	RentalReturnedDate *time.Time `json:"rental_returned_date"`

	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows listings to one user plus optional type/status values.
// A nil UserID means all users (admin listing).
type ListFilter struct {
	UserID    *int64
	OrderType *Type
	Status    *Status
	Offset    int
	Limit     int
}

// Summary aggregates one user's order history. Cancelled orders count
// toward totals but not toward the amount spent.
type Summary struct {
	TotalOrders      int             `json:"total_orders"`
	TotalPurchases   int             `json:"total_purchases"`
	TotalRentals     int             `json:"total_rentals"`
	TotalAmountSpent decimal.Decimal `json:"total_amount_spent"`
	ActiveRentals    int             `json:"active_rentals"`
}

// AdminSummary is the platform-wide counterpart of Summary.
type AdminSummary struct {
	TotalOrders    int             `json:"total_orders"`
	TotalPurchases int             `json:"total_purchases"`
	TotalRentals   int             `json:"total_rentals"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	ActiveRentals  int             `json:"active_rentals"`
	OverdueRentals int             `json:"overdue_rentals"`
}
