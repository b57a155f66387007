package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	checkouts CheckoutService
	timeout   time.Duration
	log       *zap.Logger
}

func NewCheckoutHandler(checkouts CheckoutService, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		timeout:   timeout,
		log:       log,
	}
}

type CreateCheckoutRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

type ConfirmPaymentRequestDTO struct {
	PaymentStatus  string         `json:"payment_status,omitempty"`
	PaymentDetails map[string]any `json:"payment_details,omitempty"`
}

// POST /api/checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Guests get past this check and are rejected by the service with a
	// validation error.
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or guest identity")
		return
	}

	var req CreateCheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	checkout, err := h.checkouts.CreateFromCart(ctx, owner, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, checkout)
}

// GET /api/checkout/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	checkout, err := h.checkouts.Get(ctx, userID, domain.CheckoutID(chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, checkout)
}

// PUT /api/checkout/{id}/pay
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ConfirmPaymentRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	checkout, err := h.checkouts.ConfirmPayment(ctx, userID, domain.CheckoutID(chi.URLParam(r, "id")), req.PaymentDetails, req.PaymentStatus)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, checkout)
}

// POST /api/checkout/{id}/finalize
func (h *CheckoutHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.checkouts.Finalize(ctx, userID, domain.CheckoutID(chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}
