package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senecabooks/bookstore-services/internal/auth"
	"github.com/senecabooks/bookstore-services/internal/clients"
	"github.com/senecabooks/bookstore-services/internal/order"
)

type mockService struct {
	createOrderFunc    func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error)
	getOrderFunc       func(ctx context.Context, id int64, userID *int64) (*order.Order, error)
	listOrdersFunc     func(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error)
	updateStatusFunc   func(ctx context.Context, id int64, userID *int64, status order.Status, notes *string) (*order.Order, error)
	returnRentalFunc   func(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*order.Order, error)
	summaryFunc        func(ctx context.Context, userID int64) (*order.Summary, error)
	activeRentalsFunc  func(ctx context.Context, userID int64) ([]order.Order, error)
	overdueRentalsFunc func(ctx context.Context, userID *int64) ([]order.Order, error)
	adminSummaryFunc   func(ctx context.Context) (*order.AdminSummary, error)
	seedOrdersFunc     func(ctx context.Context, userID int64) ([]order.Order, error)
}

func (m *mockService) CreateOrder(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
	return m.createOrderFunc(ctx, userID, input)
}

func (m *mockService) GetOrder(ctx context.Context, id int64, userID *int64) (*order.Order, error) {
	return m.getOrderFunc(ctx, id, userID)
}

func (m *mockService) ListOrders(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	return m.listOrdersFunc(ctx, filter)
}

func (m *mockService) UpdateStatus(ctx context.Context, id int64, userID *int64, status order.Status, notes *string) (*order.Order, error) {
	return m.updateStatusFunc(ctx, id, userID, status, notes)
}

func (m *mockService) ReturnRental(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*order.Order, error) {
	return m.returnRentalFunc(ctx, id, userID, returnDate, notes)
}

func (m *mockService) Summary(ctx context.Context, userID int64) (*order.Summary, error) {
	return m.summaryFunc(ctx, userID)
}

func (m *mockService) ActiveRentals(ctx context.Context, userID int64) ([]order.Order, error) {
	return m.activeRentalsFunc(ctx, userID)
}

func (m *mockService) OverdueRentals(ctx context.Context, userID *int64) ([]order.Order, error) {
	return m.overdueRentalsFunc(ctx, userID)
}

func (m *mockService) AdminSummary(ctx context.Context) (*order.AdminSummary, error) {
	return m.adminSummaryFunc(ctx)
}

func (m *mockService) SeedOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	return m.seedOrdersFunc(ctx, userID)
}

// identityInjector stands in for the authenticator middleware, placing a
// fixed identity on the request context.
func identityInjector(identity *clients.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity == nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func newTestRouter(svc order.Service, identity *clients.Identity) *chi.Mux {
	router := chi.NewRouter()
	order.NewHandler(svc).RegisterRoutes(router, identityInjector(identity))
	return router
}

func regularUser() *clients.Identity {
	return &clients.Identity{ID: 7, Email: "reader@example.com"}
}

func adminUser() *clients.Identity {
	return &clients.Identity{ID: 1, Email: "admin@example.com", IsAdmin: true}
}

func TestHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFunc func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error)
		wantStatus int
		wantDetail string
	}{
		{
			name: "successful_buy",
			body: `{"book_id": 42, "order_type": "buy", "quantity": 2}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				assert.Equal(t, int64(7), userID)
				assert.Equal(t, order.TypeBuy, input.OrderType)
				assert.Equal(t, 2, input.Quantity)
				return &order.Order{ID: 1, UserID: userID, Status: order.StatusConfirmed, TotalAmount: decimal.RequireFromString("79.98")}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "omitted_quantity_defaults_to_one",
			body: `{"book_id": 42, "order_type": "buy"}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				assert.Equal(t, 1, input.Quantity)
				return &order.Order{ID: 2, UserID: userID, Status: order.StatusConfirmed, TotalAmount: decimal.RequireFromString("39.99")}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "book_not_found",
			body: `{"book_id": 99, "order_type": "buy"}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, clients.ErrBookNotFound
			},
			wantStatus: http.StatusNotFound,
			wantDetail: "Book not found",
		},
		{
			name: "book_not_available",
			body: `{"book_id": 42, "order_type": "buy"}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, order.ErrBookUnavailable
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Book is not available",
		},
		{
			name: "insufficient_stock",
			body: `{"book_id": 42, "order_type": "buy", "quantity": 8}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, &order.InsufficientStockError{Available: 3}
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Not enough stock. Available: 3",
		},
		{
			name: "rent_without_rental_days",
			body: `{"book_id": 42, "order_type": "rent"}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, order.ErrRentalDaysRequired
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Rental days are required and must be at least 1 for rent orders",
		},
		{
			name: "buy_with_rental_days",
			body: `{"book_id": 42, "order_type": "buy", "rental_days": 7}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, order.ErrRentalDaysNotAllowed
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Rental days should not be specified for buy orders",
		},
		{
			name: "catalog_down",
			body: `{"book_id": 42, "order_type": "buy"}`,
			createFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
				return nil, clients.ErrServiceUnavailable
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "Catalog service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockService{createOrderFunc: tt.createFunc}, regularUser())

			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantDetail, resp["detail"])
			}
		})
	}
}

func TestHandler_CreateOrder_RejectsBadPayload(t *testing.T) {
	router := newTestRouter(&mockService{
		createOrderFunc: func(ctx context.Context, userID int64, input order.CreateInput) (*order.Order, error) {
			t.Fatal("service must not be called for invalid payloads")
			return nil, nil
		},
	}, regularUser())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed_json", body: `{"book_id":`, wantStatus: http.StatusBadRequest},
		{name: "missing_book_id", body: `{"order_type": "buy"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad_order_type", body: `{"book_id": 1, "order_type": "lease"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "quantity_zero", body: `{"book_id": 1, "order_type": "buy", "quantity": 0}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "quantity_too_large", body: `{"book_id": 1, "order_type": "buy", "quantity": 11}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_ListOrders(t *testing.T) {
	svc := &mockService{
		listOrdersFunc: func(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
			require.NotNil(t, filter.UserID)
			assert.Equal(t, int64(7), *filter.UserID)
			assert.Equal(t, 20, filter.Offset)
			assert.Equal(t, 20, filter.Limit)
			require.NotNil(t, filter.Status)
			assert.Equal(t, order.StatusConfirmed, *filter.Status)
			return []order.Order{{ID: 3, UserID: 7}}, 21, nil
		},
	}
	router := newTestRouter(svc, regularUser())

	req := httptest.NewRequest(http.MethodGet, "/orders?page=2&size=20&status=confirmed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp order.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(21), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 20, resp.Size)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, int64(3), resp.Orders[0].ID)
}

func TestHandler_ListOrders_RejectsBadFilters(t *testing.T) {
	router := newTestRouter(&mockService{}, regularUser())

	tests := []struct {
		name  string
		query string
	}{
		{name: "bad_order_type", query: "order_type=lease"},
		{name: "page_zero", query: "page=0"},
		{name: "negative_size", query: "size=-1"},
		{name: "size_over_limit", query: "size=101"},
		{name: "non_numeric_page", query: "page=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestHandler_GetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &mockService{
			getOrderFunc: func(ctx context.Context, id int64, userID *int64) (*order.Order, error) {
				assert.Equal(t, int64(5), id)
				require.NotNil(t, userID)
				assert.Equal(t, int64(7), *userID)
				return &order.Order{ID: id, UserID: *userID}, nil
			},
		}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockService{
			getOrderFunc: func(ctx context.Context, id int64, userID *int64) (*order.Order, error) {
				return nil, order.ErrNotFound
			},
		}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodGet, "/orders/999", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Order not found", resp["detail"])
	})
}

func TestHandler_UpdateStatus(t *testing.T) {
	t.Run("owner_scoped", func(t *testing.T) {
		svc := &mockService{
			updateStatusFunc: func(ctx context.Context, id int64, userID *int64, status order.Status, notes *string) (*order.Order, error) {
				assert.Equal(t, int64(5), id)
				require.NotNil(t, userID)
				assert.Equal(t, int64(7), *userID)
				assert.Equal(t, order.StatusCancelled, status)
				return &order.Order{ID: id, Status: status}, nil
			},
		}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodPut, "/orders/5/status", bytes.NewBufferString(`{"status":"cancelled"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin_updates_any_order", func(t *testing.T) {
		svc := &mockService{
			updateStatusFunc: func(ctx context.Context, id int64, userID *int64, status order.Status, notes *string) (*order.Order, error) {
				assert.Nil(t, userID)
				return &order.Order{ID: id, Status: status}, nil
			},
		}
		router := newTestRouter(svc, adminUser())

		req := httptest.NewRequest(http.MethodPut, "/orders/5/status", bytes.NewBufferString(`{"status":"completed"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		svc := &mockService{}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodPut, "/orders/5/status", bytes.NewBufferString(`{"status":"shipped"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandler_ReturnRental(t *testing.T) {
	t.Run("ineligible_returns_not_found", func(t *testing.T) {
		svc := &mockService{
			returnRentalFunc: func(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*order.Order, error) {
				return nil, order.ErrNotFound
			},
		}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodPost, "/orders/5/return", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Rental order not found or cannot be returned", resp["detail"])
	})

	t.Run("empty_body_is_allowed", func(t *testing.T) {
		svc := &mockService{
			returnRentalFunc: func(ctx context.Context, id, userID int64, returnDate *time.Time, notes *string) (*order.Order, error) {
				assert.Nil(t, returnDate)
				assert.Nil(t, notes)
				return &order.Order{ID: id, UserID: userID, Status: order.StatusReturned}, nil
			},
		}
		router := newTestRouter(svc, regularUser())

		req := httptest.NewRequest(http.MethodPost, "/orders/5/return", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandler_Summary(t *testing.T) {
	svc := &mockService{
		summaryFunc: func(ctx context.Context, userID int64) (*order.Summary, error) {
			assert.Equal(t, int64(7), userID)
			return &order.Summary{
				TotalOrders:      4,
				TotalPurchases:   2,
				TotalRentals:     2,
				TotalAmountSpent: decimal.RequireFromString("135.83"),
				ActiveRentals:    1,
			}, nil
		},
	}
	router := newTestRouter(svc, regularUser())

	req := httptest.NewRequest(http.MethodGet, "/orders/summary/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.JSONEq(t, `4`, string(resp["total_orders"]))
	assert.JSONEq(t, `1`, string(resp["active_rentals"]))
}

func TestHandler_AdminRoutes_RequireAdmin(t *testing.T) {
	router := newTestRouter(&mockService{}, regularUser())

	for _, path := range []string{"/admin/orders", "/admin/summary", "/admin/orders/overdue"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "path %s", path)
	}
}

func TestHandler_AdminListOrders(t *testing.T) {
	svc := &mockService{
		listOrdersFunc: func(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
			assert.Nil(t, filter.UserID)
			return []order.Order{{ID: 1, UserID: 7}, {ID: 2, UserID: 9}}, 2, nil
		},
	}
	router := newTestRouter(svc, adminUser())

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp order.AdminListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "user_7@senecabooks.local", resp.Orders[0].UserEmail)
	assert.Equal(t, "user_9@senecabooks.local", resp.Orders[1].UserEmail)
}

func TestHandler_Unauthenticated(t *testing.T) {
	router := newTestRouter(&mockService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
