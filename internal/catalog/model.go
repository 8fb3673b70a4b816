package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is a catalog row. Price is the purchase price, RentPrice the per-day
// rental price.
type Book struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	ISBN            *string         `json:"isbn"`
	Description     *string         `json:"description"`
	Category        *string         `json:"category"`
	Price           decimal.Decimal `json:"price"`
	RentPrice       decimal.Decimal `json:"rent_price"`
	Available       bool            `json:"available"`
	StockQuantity   int             `json:"stock_quantity"`
	PublicationYear *int            `json:"publication_year"`
	Publisher       *string         `json:"publisher"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ListFilter narrows a catalog listing. Nil fields mean "no filter".
type ListFilter struct {
	Search        *string
	Category      *string
	Author        *string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	AvailableOnly bool
	Offset        int
	Limit         int
}

// BookUpdate carries a partial update; nil fields are left untouched.
type BookUpdate struct {
	Title           *string
	Author          *string
	ISBN            *string
	Description     *string
	Category        *string
	Price           *decimal.Decimal
	RentPrice       *decimal.Decimal
	Available       *bool
	StockQuantity   *int
	PublicationYear *int
	Publisher       *string
}
