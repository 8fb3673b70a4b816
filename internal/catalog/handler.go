package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/senecabooks/bookstore-services/internal/auth"
	"github.com/senecabooks/bookstore-services/internal/httpx"
)

type BookCreateRequest struct {
	Title           string          `json:"title" validate:"required,min=1,max=500"`
	Author          string          `json:"author" validate:"required,min=1,max=200"`
	ISBN            *string         `json:"isbn" validate:"omitempty,max=20"`
	Description     *string         `json:"description" validate:"omitempty,max=2000"`
	Category        *string         `json:"category" validate:"omitempty,max=100"`
	Price           decimal.Decimal `json:"price"`
	RentPrice       decimal.Decimal `json:"rent_price"`
	Available       *bool           `json:"available"`
	StockQuantity   *int            `json:"stock_quantity" validate:"omitempty,gte=0"`
	PublicationYear *int            `json:"publication_year" validate:"omitempty,gte=1000,lte=2100"`
	Publisher       *string         `json:"publisher" validate:"omitempty,max=200"`
}

type BookUpdateRequest struct {
	Title           *string          `json:"title" validate:"omitempty,min=1,max=500"`
	Author          *string          `json:"author" validate:"omitempty,min=1,max=200"`
	ISBN            *string          `json:"isbn" validate:"omitempty,max=20"`
	Description     *string          `json:"description" validate:"omitempty,max=2000"`
	Category        *string          `json:"category" validate:"omitempty,max=100"`
	Price           *decimal.Decimal `json:"price"`
	RentPrice       *decimal.Decimal `json:"rent_price"`
	Available       *bool            `json:"available"`
	StockQuantity   *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	PublicationYear *int             `json:"publication_year" validate:"omitempty,gte=1000,lte=2100"`
	Publisher       *string          `json:"publisher" validate:"omitempty,max=200"`
}

type BookListResponse struct {
	Books []Book `json:"books"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
}

type ImportRequest struct {
	ISBN string `json:"isbn" validate:"required,min=10,max=20"`
}

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RegisterRoutes wires the catalog endpoints. Mutating routes run behind the
// authenticate middleware plus the admin gate; reads are public.
func (h *Handler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Get("/", h.handleRoot)
	router.Get("/health", h.handleHealth)

	router.Get("/books", h.handleListBooks)
	router.Get("/books/{id}", h.handleGetBook)
	router.Get("/categories", h.handleCategories)
	router.Get("/authors", h.handleAuthors)

	router.Get("/external/search", h.handleExternalSearch)
	router.Get("/external/subjects/{subject}", h.handleExternalSubject)

	router.Group(func(admin chi.Router) {
		admin.Use(authenticate)
		admin.Use(auth.RequireAdmin)
		admin.Post("/books", h.handleCreateBook)
		admin.Put("/books/{id}", h.handleUpdateBook)
		admin.Delete("/books/{id}", h.handleDeleteBook)
		admin.Post("/external/import", h.handleImport)
		admin.Post("/seed-data", h.handleSeedData)
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "catalog-service"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "OK", "service": "catalog-service"})
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page, size, err := pagination(r)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	filter := ListFilter{
		AvailableOnly: true,
		Offset:        (page - 1) * size,
		Limit:         size,
	}
	if v := r.URL.Query().Get("available_only"); v != "" {
		filter.AvailableOnly = v != "false" && v != "0"
	}
	if v := r.URL.Query().Get("search"); v != "" {
		filter.Search = &v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		filter.Category = &v
	}
	if v := r.URL.Query().Get("author"); v != "" {
		filter.Author = &v
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			httpx.RespondError(w, http.StatusUnprocessableEntity, "min_price must be a non-negative number")
			return
		}
		filter.MinPrice = &d
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			httpx.RespondError(w, http.StatusUnprocessableEntity, "max_price must be a non-negative number")
			return
		}
		filter.MaxPrice = &d
	}

	books, total, err := h.service.ListBooks(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list books")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list books")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, BookListResponse{Books: books, Total: total, Page: page, Size: size})
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Book id must be an integer")
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "Book not found")
			return
		}
		log.Error().Err(err).Int64("book_id", id).Msg("handler: failed to get book")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to get book")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, book)
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}
	if !req.Price.IsPositive() || !req.RentPrice.IsPositive() {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "price and rent_price must be greater than 0")
		return
	}

	book := &Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Description:     req.Description,
		Category:        req.Category,
		Price:           req.Price,
		RentPrice:       req.RentPrice,
		Available:       true,
		StockQuantity:   1,
		PublicationYear: req.PublicationYear,
		Publisher:       req.Publisher,
	}
	if req.Available != nil {
		book.Available = *req.Available
	}
	if req.StockQuantity != nil {
		book.StockQuantity = *req.StockQuantity
	}

	created, err := h.service.CreateBook(r.Context(), book)
	if err != nil {
		if errors.Is(err, ErrISBNExists) {
			httpx.RespondError(w, http.StatusBadRequest, "Book with this ISBN already exists")
			return
		}
		log.Error().Err(err).Msg("handler: failed to create book")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create book")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Book id must be an integer")
		return
	}

	var req BookUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}
	if (req.Price != nil && !req.Price.IsPositive()) || (req.RentPrice != nil && !req.RentPrice.IsPositive()) {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "price and rent_price must be greater than 0")
		return
	}

	update := BookUpdate{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Description:     req.Description,
		Category:        req.Category,
		Price:           req.Price,
		RentPrice:       req.RentPrice,
		Available:       req.Available,
		StockQuantity:   req.StockQuantity,
		PublicationYear: req.PublicationYear,
		Publisher:       req.Publisher,
	}

	updated, err := h.service.UpdateBook(r.Context(), id, update)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.RespondError(w, http.StatusNotFound, "Book not found")
		case errors.Is(err, ErrISBNExists):
			httpx.RespondError(w, http.StatusBadRequest, "Book with this ISBN already exists")
		default:
			log.Error().Err(err).Int64("book_id", id).Msg("handler: failed to update book")
			httpx.RespondError(w, http.StatusInternalServerError, "Failed to update book")
		}
		return
	}

	httpx.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "Book id must be an integer")
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "Book not found")
			return
		}
		log.Error().Err(err).Int64("book_id", id).Msg("handler: failed to delete book")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete book")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list categories")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *Handler) handleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.Authors(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list authors")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to list authors")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string][]string{"authors": authors})
}

func (h *Handler) handleExternalSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.RespondError(w, http.StatusUnprocessableEntity, "q is required")
		return
	}
	limit, err := queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 10000)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.service.SearchExternal(r.Context(), query, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("handler: external search failed")
		httpx.RespondError(w, http.StatusServiceUnavailable, "Open Library unavailable")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExternalSubject(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	limit, err := queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 10000)
	if err != nil {
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.service.ExternalBySubject(r.Context(), subject, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("handler: external subject browse failed")
		httpx.RespondError(w, http.StatusServiceUnavailable, "Open Library unavailable")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}

	book, err := h.service.ImportByISBN(r.Context(), req.ISBN)
	if err != nil {
		switch {
		case errors.Is(err, ErrExternalNotFound):
			httpx.RespondError(w, http.StatusNotFound, "No Open Library record for this ISBN")
		case errors.Is(err, ErrISBNExists):
			httpx.RespondError(w, http.StatusBadRequest, "Book with this ISBN already exists")
		default:
			log.Error().Err(err).Str("isbn", req.ISBN).Msg("handler: import failed")
			httpx.RespondError(w, http.StatusServiceUnavailable, "Open Library unavailable")
		}
		return
	}

	httpx.RespondJSON(w, http.StatusOK, book)
}

var seedBooks = []BookCreateRequest{
	{
		Title:           "Introduction to Python Programming",
		Author:          "John Smith",
		ISBN:            strPtr("978-1234567890"),
		Description:     strPtr("A comprehensive guide to Python programming for beginners"),
		Category:        strPtr("Programming"),
		Price:           decimal.NewFromFloat(49.99),
		RentPrice:       decimal.NewFromFloat(5.99),
		StockQuantity:   intPtr(10),
		PublicationYear: intPtr(2023),
		Publisher:       strPtr("Tech Books Inc"),
	},
	{
		Title:           "Advanced Web Development",
		Author:          "Jane Doe",
		ISBN:            strPtr("978-0987654321"),
		Description:     strPtr("Master modern web development with React and Node.js"),
		Category:        strPtr("Web Development"),
		Price:           decimal.NewFromFloat(59.99),
		RentPrice:       decimal.NewFromFloat(6.99),
		StockQuantity:   intPtr(5),
		PublicationYear: intPtr(2024),
		Publisher:       strPtr("Web Masters"),
	},
	{
		Title:           "Database Design Fundamentals",
		Author:          "Bob Johnson",
		ISBN:            strPtr("978-1122334455"),
		Description:     strPtr("Learn database design principles and SQL"),
		Category:        strPtr("Database"),
		Price:           decimal.NewFromFloat(45.99),
		RentPrice:       decimal.NewFromFloat(4.99),
		StockQuantity:   intPtr(8),
		PublicationYear: intPtr(2023),
		Publisher:       strPtr("Data Science Press"),
	},
}

func (h *Handler) handleSeedData(w http.ResponseWriter, r *http.Request) {
	created := make([]Book, 0, len(seedBooks))
	for _, req := range seedBooks {
		book := &Book{
			Title:           req.Title,
			Author:          req.Author,
			ISBN:            req.ISBN,
			Description:     req.Description,
			Category:        req.Category,
			Price:           req.Price,
			RentPrice:       req.RentPrice,
			Available:       true,
			StockQuantity:   *req.StockQuantity,
			PublicationYear: req.PublicationYear,
			Publisher:       req.Publisher,
		}
		out, err := h.service.CreateBook(r.Context(), book)
		if err != nil {
			continue // already seeded or transient failure, move on
		}
		created = append(created, *out)
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": strconv.Itoa(len(created)) + " sample books created",
		"books":   created,
	})
}

func pagination(r *http.Request) (page, size int, err error) {
	page, err = queryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return 0, 0, err
	}
	size, err = queryInt(r, "size", 20, 1, 100)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
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

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
