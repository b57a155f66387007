package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	users   UserService
	timeout time.Duration
	log     *zap.Logger
}

func NewUserHandler(users UserService, timeout time.Duration, log *zap.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		timeout: timeout,
		log:     log,
	}
}

type RegisterUserRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/users registers customers only. Admin accounts come from the seeder.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterUserRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(ctx, req.Name, req.Email, req.Password, domain.RoleCustomer)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.users.Get(ctx, domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// RequireAdmin rejects callers whose X-User-ID does not belong to an admin.
func (h *UserHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := getUserIDFromContext(r.Context())
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		user, err := h.users.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				respondError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
				return
			}
			handleServiceError(w, r, h.log, err)
			return
		}
		if user.Role != domain.RoleAdmin {
			respondError(w, http.StatusForbidden, "permission_denied", "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
