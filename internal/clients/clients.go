// Package clients contains the HTTP clients the services use to talk to
// each other. Calls are synchronous with no retry: a transport failure or
// timeout surfaces to the caller as ErrServiceUnavailable.
package clients

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnauthenticated    = errors.New("invalid authentication credentials")
	ErrBookNotFound       = errors.New("book not found")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Identity is the user service's /me response. The calling service trusts
// it unconditionally.
type Identity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// BookInfo is the catalog service's view of a book, as consumed by the
// order service at order-creation time.
type BookInfo struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	ISBN          *string         `json:"isbn"`
	Price         decimal.Decimal `json:"price"`
	RentPrice     decimal.Decimal `json:"rent_price"`
	Available     bool            `json:"available"`
	StockQuantity int             `json:"stock_quantity"`
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
