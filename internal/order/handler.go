package order

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/senecabooks/bookstore-services/internal/auth"
	"github.com/senecabooks/bookstore-services/internal/clients"
	"github.com/senecabooks/bookstore-services/internal/httpx"
)

type CreateOrderRequest struct {
	BookID     int64   `json:"book_id" validate:"required,gt=0"`
	OrderType  string  `json:"order_type" validate:"required,oneof=buy rent"`
	Quantity   *int    `json:"quantity" validate:"omitempty,gte=1,lte=10"`
	RentalDays *int    `json:"rental_days" validate:"omitempty,gte=1,lte=365"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

type StatusUpdateRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed completed cancelled returned"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

type ReturnRequest struct {
	ReturnDate *time.Time `json:"return_date"`
	Notes      *string    `json:"notes" validate:"omitempty,max=500"`
}

type ListResponse struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Size   int     `json:"size"`
}

// AdminOrder decorates an order with the owning user's email for admin
// views. Emails are placeholders until the user service exposes a bulk
// lookup.
type AdminOrder struct {
	Order
	UserEmail string `json:"user_email"`
}

type AdminListResponse struct {
	Orders []AdminOrder `json:"orders"`
	Total  int64        `json:"total"`
	Page   int          `json:"page"`
	Size   int          `json:"size"`
}

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Get("/", h.handleRoot)
	router.Get("/health", h.handleHealth)

	router.Group(func(authed chi.Router) {
		authed.Use(authenticate)
		authed.Post("/orders", h.handleCreateOrder)
		authed.Get("/orders", h.handleListOrders)
		authed.Get("/orders/summary/me", h.handleSummary)
		authed.Get("/orders/rentals/active", h.handleActiveRentals)
		authed.Get("/orders/rentals/overdue", h.handleOverdueRentals)
		authed.Get("/orders/{id}", h.handleGetOrder)
		authed.Put("/orders/{id}/status", h.handleUpdateStatus)
		authed.Post("/orders/{id}/return", h.handleReturnRental)
		authed.Post("/seed-orders", h.handleSeedOrders)

		authed.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin)
			admin.Get("/admin/orders", h.handleAdminListOrders)
			admin.Get("/admin/orders/overdue", h.handleAdminOverdueRentals)
			admin.Get("/admin/summary", h.handleAdminSummary)
		})
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "order-service"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "OK", "service": "order-service"})
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}

	// A present-but-zero quantity fails validation above; only an absent
	// field gets the default.
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	input := CreateInput{
		BookID:     req.BookID,
		OrderType:  Type(req.OrderType),
		Quantity:   quantity,
		RentalDays: req.RentalDays,
		Notes:      req.Notes,
	}

	created, err := h.service.CreateOrder(r.Context(), identity.ID, input)
	if err != nil {
		var stockErr *InsufficientStockError
		switch {
		case errors.Is(err, ErrRentalDaysRequired):
			httpx.RespondError(w, http.StatusUnprocessableEntity, "Rental days are required and must be at least 1 for rent orders")
		case errors.Is(err, ErrRentalDaysNotAllowed):
			httpx.RespondError(w, http.StatusUnprocessableEntity, "Rental days should not be specified for buy orders")
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidOrderType):
			httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, clients.ErrBookNotFound):
			httpx.RespondError(w, http.StatusNotFound, "Book not found")
		case errors.Is(err, ErrBookUnavailable):
			httpx.RespondError(w, http.StatusBadRequest, "Book is not available")
		case errors.As(err, &stockErr):
			httpx.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Not enough stock. Available: %d", stockErr.Available))
		case errors.Is(err, clients.ErrServiceUnavailable):
			httpx.RespondError(w, http.StatusServiceUnavailable, "Catalog service unavailable")
		default:
			log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to create order")
			httpx.RespondError(w, http.StatusInternalServerError, "Failed to create order")
		}
		return
	}

	httpx.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter, page, size, err := listFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	filter.UserID = &identity.ID

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to list orders")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, ListResponse{Orders: orders, Total: total, Page: page, Size: size})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Order id must be an integer")
		return
	}

	o, err := h.service.GetOrder(r.Context(), id, &identity.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("handler: failed to get order")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, o)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Order id must be an integer")
		return
	}

	var req StatusUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}

	// Admins may update any order; everyone else only their own.
	scope := &identity.ID
	if identity.IsAdmin {
		scope = nil
	}

	updated, err := h.service.UpdateStatus(r.Context(), id, scope, Status(req.Status), req.Notes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("handler: failed to update order status")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleReturnRental(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Order id must be an integer")
		return
	}

	req := ReturnRequest{}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.RespondValidationError(w, err)
			return
		}
	}

	returned, err := h.service.ReturnRental(r.Context(), id, identity.ID, req.ReturnDate, req.Notes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "Rental order not found or cannot be returned")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("handler: failed to return rental")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to return rental")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, returned)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	summary, err := h.service.Summary(r.Context(), identity.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to build order summary")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to build order summary")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleActiveRentals(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rentals, err := h.service.ActiveRentals(r.Context(), identity.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to list active rentals")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list active rentals")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, rentals)
}

func (h *Handler) handleOverdueRentals(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rentals, err := h.service.OverdueRentals(r.Context(), &identity.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to list overdue rentals")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list overdue rentals")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, rentals)
}

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	filter, page, size, err := listFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list all orders")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, AdminListResponse{
		Orders: toAdminOrders(orders),
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

func (h *Handler) handleAdminOverdueRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.service.OverdueRentals(r.Context(), nil)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list overdue rentals")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list overdue rentals")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, toAdminOrders(rentals))
}

func (h *Handler) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AdminSummary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to build admin summary")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to build admin summary")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSeedOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	created, err := h.service.SeedOrders(r.Context(), identity.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.ID).Msg("handler: failed to seed orders")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to seed orders")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Created %d sample orders", len(created)),
		"orders":  created,
	})
}

func listFilterFromQuery(r *http.Request) (ListFilter, int, int, error) {
	page, err := queryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return ListFilter{}, 0, 0, err
	}
	size, err := queryInt(r, "size", 20, 1, 100)
	if err != nil {
		return ListFilter{}, 0, 0, err
	}

	filter := ListFilter{
		Offset: (page - 1) * size,
		Limit:  size,
	}

	if v := r.URL.Query().Get("order_type"); v != "" {
		t := Type(v)
		if !t.Valid() {
			return ListFilter{}, 0, 0, errors.New("order_type must be 'buy' or 'rent'")
		}
		filter.OrderType = &t
	}
	if v := r.URL.Query().Get("status"); v != "" {
		s := Status(v)
		if !s.Valid() {
			return ListFilter{}, 0, 0, errors.New("invalid status filter")
		}
		filter.Status = &s
	}

	return filter, page, size, nil
}

func queryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if n < min {
		return 0, fmt.Errorf("%s must be at least %d", key, min)
	}
	if n > max {
		return 0, fmt.Errorf("%s must be at most %d", key, max)
	}
	return n, nil
}

func toAdminOrders(orders []Order) []AdminOrder {
	out := make([]AdminOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, AdminOrder{
			Order:     o,
			UserEmail: fmt.Sprintf("user_%d@senecabooks.local", o.UserID),
		})
	}
	return out
}
