package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartAPI is the cart service surface the handler depends on.
type CartAPI interface {
	GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.Owner, productID string, quantity int, variants []domain.SelectedVariant) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner domain.Owner, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.Owner, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	ApplyDiscount(ctx context.Context, owner domain.Owner, code string) (*domain.Cart, error)
	RemoveDiscount(ctx context.Context, owner domain.Owner, code string) (*domain.Cart, error)
}

// Merger folds a guest cart into the user's cart at login.
type Merger interface {
	Merge(ctx context.Context, userID, sessionID string) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartAPI
	merger  Merger
	timeout time.Duration
}

func NewCartHandler(carts CartAPI, merger Merger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		merger:  merger,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string                   `json:"product_id"`
	Quantity  int                      `json:"quantity"`
	Variants  []domain.SelectedVariant `json:"variants,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type DiscountRequestDTO struct {
	Code string `json:"code"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	c, err := h.carts.GetCart(ctx, owner)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	// The per-line ceiling is the service's call, so it can report
	// quantity_limit_exceeded with the cart's current contents in mind.
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	c, err := h.carts.AddItem(ctx, owner, req.ProductID, req.Quantity, req.Variants)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "missing_item_id", "item_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Quantity 0 removes the line; the upper bound is the service's call.
	c, err := h.carts.UpdateItemQuantity(ctx, owner, itemID, req.Quantity)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "missing_item_id", "item_id is required")
		return
	}

	c, err := h.carts.RemoveItem(ctx, owner, itemID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	c, err := h.carts.ClearCart(ctx, owner)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	var req DiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "missing_code", "discount code is required")
		return
	}

	c, err := h.carts.ApplyDiscount(ctx, owner, req.Code)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or session identification")
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing_code", "discount code is required")
		return
	}

	c, err := h.carts.RemoveDiscount(ctx, owner, code)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// MergeCart folds the caller's guest cart into their user cart. Requires
// both identities on the request.
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "guest session is required for merge")
		return
	}

	c, err := h.merger.Merge(ctx, userID, sessionID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}
