package user

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/senecabooks/bookstore-services/internal/auth"
	"github.com/senecabooks/bookstore-services/internal/httpx"
)

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	IsAdmin  bool    `json:"is_admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type Handler struct {
	service  Service
	tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewHandler(service Service, tokens *auth.TokenManager) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleRoot)
	router.Get("/health", h.handleHealth)
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)
	router.Get("/me", h.handleMe)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "user-service"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "OK", "service": "user-service"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}

	created, err := h.service.Register(r.Context(), req.Email, req.Password, req.FullName, req.IsAdmin)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			httpx.RespondError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		log.Error().Err(err).Msg("handler: failed to register user")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, toUserResponse(created))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondValidationError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.RespondError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		log.Error().Err(err).Msg("handler: failed to log user in")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleMe verifies the token locally: the user service owns the signing
// secret, so it does not call itself the way the other services do.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	userID, _, err := h.tokens.Parse(parts[1])
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.RespondError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.RespondError(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}
		log.Error().Err(err).Msg("handler: failed to load current user")
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, toUserResponse(u))
}

func toUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
