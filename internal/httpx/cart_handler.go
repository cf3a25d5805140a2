package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/cart"
	"github.com/pranjay/orders-core/internal/catalog"
)

type CartHandler struct {
	Cart    *cart.Repo
	Catalog *catalog.Repo
}

func (h *CartHandler) Register(r *chi.Mux, auth *Auth) {
	r.Get("/products", h.listProducts)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addItem)
		r.Patch("/cart/items/{productID}", h.updateItem)
		r.Delete("/cart/items/{productID}", h.removeItem)
	})
}

func (h *CartHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	views, err := h.Cart.View(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if views == nil {
		views = []cart.LineView{}
	}
	writeJSON(w, http.StatusOK, views)
}

type cartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.BadRequest("invalid json"))
		return
	}
	if req.ProductID == "" {
		writeErr(w, apperr.BadRequest("product_id is required"))
		return
	}

	line, err := h.Cart.Add(r.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.BadRequest("invalid json"))
		return
	}

	line, err := h.Cart.Update(r.Context(), id.UserID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if err := h.Cart.Remove(r.Context(), id.UserID, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
