package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/checkout"
	"github.com/pranjay/orders-core/internal/inventory"
	"github.com/pranjay/orders-core/internal/metrics"
	"github.com/pranjay/orders-core/internal/notify"
	"github.com/pranjay/orders-core/internal/orders"
	"github.com/pranjay/orders-core/internal/redisx"
)

// Cache is the subset of the redis client the handlers touch.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// OrderStore is the order repository surface the handlers consume.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	List(ctx context.Context, f orders.Filter) (orders.Page, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, ps orders.PaymentStatus) (*orders.Order, error)
	Cancel(ctx context.Context, orderID, requestingUserID string) (*orders.Order, error)
	Stats(ctx context.Context) (orders.Stats, error)
}

type OrdersHandler struct {
	Checkout *checkout.Service
	Repo     OrderStore
	Events   *notify.Publisher
	Redis    Cache
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

type CheckoutReq struct {
	ShippingAddressID string `json:"shipping_address_id"`
	PaymentMethod     string `json:"payment_method"`
	Notes             string `json:"notes,omitempty"`
	// ExternalID is the client's idempotency token. Resubmitting the same
	// token within the window returns the original order instead of placing
	// a new one.
	ExternalID string `json:"external_id,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux, auth *Auth) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listMyOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/admin/orders", h.listAllOrders)
			r.Get("/admin/orders/stats", h.stats)
			r.Patch("/admin/orders/{id}/status", h.updateStatus)
			r.Patch("/admin/orders/{id}/payment-status", h.updatePaymentStatus)
			r.Post("/admin/orders/{id}/cancel", h.adminCancelOrder)
		})
	})
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.BadRequest("invalid json"))
		return
	}
	if req.ShippingAddressID == "" || req.PaymentMethod == "" {
		writeErr(w, apperr.BadRequest("shipping_address_id and payment_method are required"))
		return
	}

	ctx := r.Context()

	// resubmission guard: the same client token within the window returns the
	// order the first submission created. A fresh token, or none, always goes
	// through checkout, so a refilled cart places a new order.
	var idemKey string
	if req.ExternalID != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, id.UserID, req.ExternalID)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if ord, err := h.lookupOrder(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, ord)
				return
			}
		}
	}

	start := time.Now()
	ord, err := h.Checkout.Checkout(ctx, checkout.Customer{ID: id.UserID, Email: id.Email, Name: id.Name},
		checkout.Request{
			ShippingAddressID: req.ShippingAddressID,
			PaymentMethod:     req.PaymentMethod,
			Notes:             req.Notes,
		})
	h.Metrics.CheckoutSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		var stock *inventory.InsufficientStockError
		if errors.As(err, &stock) {
			h.Metrics.StockRejections.Inc()
		}
		writeErr(w, err)
		return
	}
	h.Metrics.OrdersPlaced.Inc()

	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, ord.ID, redisx.TTLIdemCheckout).Err()
	}
	h.cacheOrder(r, ord)

	writeJSON(w, http.StatusCreated, ord)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	key := fmt.Sprintf(redisx.KeyOrder, orderID)
	if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
		var ord orders.Order
		if json.Unmarshal([]byte(s), &ord) == nil {
			if ord.UserID != id.UserID && !id.Admin {
				writeErr(w, apperr.NotFound("order"))
				return
			}
			writeJSON(w, http.StatusOK, &ord)
			return
		}
	}

	ord, err := h.Repo.Get(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ord.UserID != id.UserID && !id.Admin {
		writeErr(w, apperr.NotFound("order"))
		return
	}
	h.cacheOrder(r, ord)
	writeJSON(w, http.StatusOK, ord)
}

func (h *OrdersHandler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	f := filterFromQuery(r)
	f.UserID = id.UserID

	page, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	f.UserID = r.URL.Query().Get("user_id")

	page, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	h.cancel(w, r, id.UserID)
}

func (h *OrdersHandler) adminCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, "")
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request, requestingUserID string) {
	orderID := chi.URLParam(r, "id")
	ord, err := h.Repo.Cancel(r.Context(), orderID, requestingUserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Metrics.OrdersCancelled.Inc()
	h.cacheOrder(r, ord)
	writeJSON(w, http.StatusOK, ord)
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.BadRequest("invalid json"))
		return
	}

	// cancellation is not a plain status write: it must credit stock back in
	// the same transaction, so it routes through the compensator
	if req.Status == orders.StatusCancelled {
		h.cancel(w, r, "")
		return
	}

	ord, err := h.Repo.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ord.Status == orders.StatusShipped {
		h.Events.OrderShipped(ord)
	}
	h.cacheOrder(r, ord)
	writeJSON(w, http.StatusOK, ord)
}

type paymentStatusReq struct {
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

func (h *OrdersHandler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req paymentStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.BadRequest("invalid json"))
		return
	}

	ord, err := h.Repo.UpdatePaymentStatus(r.Context(), orderID, req.PaymentStatus)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(r, ord)
	writeJSON(w, http.StatusOK, ord)
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Repo.Stats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// lookupOrder reads through the order cache before hitting storage.
func (h *OrdersHandler) lookupOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	key := fmt.Sprintf(redisx.KeyOrder, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var ord orders.Order
		if json.Unmarshal([]byte(s), &ord) == nil {
			return &ord, nil
		}
	}
	return h.Repo.Get(ctx, orderID)
}

// cacheOrder refreshes the read cache; stale entries would otherwise serve an
// outdated status for up to the TTL after a lifecycle change.
func (h *OrdersHandler) cacheOrder(r *http.Request, ord *orders.Order) {
	b, err := json.Marshal(ord)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrder, ord.ID)
	if err := h.Redis.Set(r.Context(), key, b, redisx.TTLOrderCache).Err(); err != nil {
		h.Log.Debug("order cache write failed", zap.Error(err))
	}
}

func filterFromQuery(r *http.Request) orders.Filter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return orders.Filter{
		Status:        orders.Status(q.Get("status")),
		PaymentStatus: orders.PaymentStatus(q.Get("payment_status")),
		Page:          page,
		PageSize:      size,
	}
}
