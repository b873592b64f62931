package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vqhuy/go-storefront-orders/internal/orders"
)

type catalogStore interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	CartFor(ctx context.Context, userID string) ([]orders.CartItem, error)
	AddCartItem(ctx context.Context, it orders.CartItem) (orders.CartItem, error)
}

// CatalogHandler exposes the read side of the catalog and the cart entry
// points that feed checkout. Cart clearing itself happens inside the order
// transaction, not here.
type CatalogHandler struct {
	Store catalogStore
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addCartItem)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Store.CartFor(ctx, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if items == nil {
		items = []orders.CartItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var it orders.CartItem
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if it.UserID == "" || it.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	saved, err := h.Store.AddCartItem(ctx, it)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
