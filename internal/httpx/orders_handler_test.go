package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/address"
	"github.com/pranjay/orders-core/internal/cart"
	"github.com/pranjay/orders-core/internal/catalog"
	"github.com/pranjay/orders-core/internal/checkout"
	"github.com/pranjay/orders-core/internal/metrics"
	"github.com/pranjay/orders-core/internal/orders"
)

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemCache() *memCache { return &memCache{m: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.m[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.m[key] = v
	case []byte:
		c.m[key] = string(v)
	}
	return redis.NewStatusResult("OK", nil)
}

type ckStore struct {
	mu     sync.Mutex
	stock  map[string]int
	carts  map[string][]cart.Line
	placed []*orders.Order
}

func (s *ckStore) Lines(_ context.Context, userID string) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.Line(nil), s.carts[userID]...), nil
}

func (s *ckStore) Place(_ context.Context, ord *orders.Order, items []orders.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.stock[it.ProductID] -= it.Quantity
	}
	ord.Items = items
	cp := *ord
	s.placed = append(s.placed, &cp)
	delete(s.carts, ord.UserID)
	return nil
}

type anyAddress struct{}

func (anyAddress) Resolve(_ context.Context, addressID, userID string) (address.Address, error) {
	return address.Address{ID: addressID, UserID: userID}, nil
}

type mapCatalog map[string]catalog.Product

func (m mapCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	return m[id], nil
}

func newCheckoutHandler(store *ckStore, cat mapCatalog, cache *memCache) *OrdersHandler {
	return &OrdersHandler{
		Checkout: &checkout.Service{
			Addresses: anyAddress{},
			Cart:      store,
			Catalog:   cat,
			Orders:    store,
			Prefix:    "PRJ",
		},
		Redis:   cache,
		Metrics: testMetrics(),
		Log:     zap.NewNop(),
	}
}

// testMetrics builds unregistered collectors so tests never collide on the
// default registry.
func testMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		OrdersPlaced:    prometheus.NewCounter(prometheus.CounterOpts{Name: "t_orders_placed"}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{Name: "t_orders_cancelled"}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{Name: "t_stock_rejections"}),
		CheckoutSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "t_checkout_seconds"}),
	}
}

func authedRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	r := httptest.NewRequest(method, target, bytes.NewReader(b))
	id := Identity{UserID: "u1", Email: "buyer@example.com", Name: "Buyer One", Admin: true}
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

func postCheckout(t *testing.T, h *OrdersHandler, externalID string) (*httptest.ResponseRecorder, orders.Order) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.checkout(rec, authedRequest(http.MethodPost, "/checkout", CheckoutReq{
		ShippingAddressID: "addr-1",
		PaymentMethod:     "bank_transfer",
		ExternalID:        externalID,
	}))
	var ord orders.Order
	if rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), &ord); err != nil {
			t.Fatalf("decode order: %v", err)
		}
	}
	return rec, ord
}

func TestCheckoutRefilledCartCreatesSecondOrder(t *testing.T) {
	cat := mapCatalog{
		"p1": {ID: "p1", Name: "Rose Serum", SKU: "SKU-1", SellingPrice: decimal.RequireFromString("10.00"), StockQuantity: 50, MinOrderQuantity: 1, IsActive: true},
		"p2": {ID: "p2", Name: "Clay Mask", SKU: "SKU-2", SellingPrice: decimal.RequireFromString("20.00"), StockQuantity: 50, MinOrderQuantity: 1, IsActive: true},
	}
	store := &ckStore{
		stock: map[string]int{"p1": 50, "p2": 50},
		carts: map[string][]cart.Line{"u1": {{UserID: "u1", ProductID: "p1", Quantity: 2}}},
	}
	h := newCheckoutHandler(store, cat, newMemCache())

	rec, first := postCheckout(t, h, "tok-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first checkout status = %d, want 201", rec.Code)
	}

	// same user refills the cart with something else within the window
	store.mu.Lock()
	store.carts["u1"] = []cart.Line{{UserID: "u1", ProductID: "p2", Quantity: 3}}
	store.mu.Unlock()

	rec, second := postCheckout(t, h, "tok-2")
	if rec.Code != http.StatusCreated {
		t.Fatalf("second checkout status = %d, want 201", rec.Code)
	}
	if second.ID == first.ID {
		t.Fatal("refilled cart must place a new order, got the first one back")
	}
	if len(store.placed) != 2 {
		t.Fatalf("placed %d orders, want 2", len(store.placed))
	}
	if got := store.placed[1].Items[0].ProductID; got != "p2" {
		t.Fatalf("second order snapshot carries %s, want p2", got)
	}
}

func TestCheckoutResubmissionShortCircuits(t *testing.T) {
	cat := mapCatalog{
		"p1": {ID: "p1", Name: "Rose Serum", SKU: "SKU-1", SellingPrice: decimal.RequireFromString("10.00"), StockQuantity: 50, MinOrderQuantity: 1, IsActive: true},
	}
	store := &ckStore{
		stock: map[string]int{"p1": 50},
		carts: map[string][]cart.Line{"u1": {{UserID: "u1", ProductID: "p1", Quantity: 2}}},
	}
	h := newCheckoutHandler(store, cat, newMemCache())

	rec, first := postCheckout(t, h, "tok-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first checkout status = %d, want 201", rec.Code)
	}

	// retry with the same token: no new order, the original comes back
	rec, again := postCheckout(t, h, "tok-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmission status = %d, want 200", rec.Code)
	}
	if again.ID != first.ID {
		t.Fatalf("resubmission returned %s, want %s", again.ID, first.ID)
	}
	if len(store.placed) != 1 {
		t.Fatalf("resubmission must not place again, got %d orders", len(store.placed))
	}
}

func TestCheckoutWithoutTokenNeverShortCircuits(t *testing.T) {
	cat := mapCatalog{
		"p1": {ID: "p1", Name: "Rose Serum", SKU: "SKU-1", SellingPrice: decimal.RequireFromString("10.00"), StockQuantity: 50, MinOrderQuantity: 1, IsActive: true},
	}
	store := &ckStore{
		stock: map[string]int{"p1": 50},
		carts: map[string][]cart.Line{"u1": {{UserID: "u1", ProductID: "p1", Quantity: 2}}},
	}
	h := newCheckoutHandler(store, cat, newMemCache())

	if rec, _ := postCheckout(t, h, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first checkout status = %d, want 201", rec.Code)
	}
	// cart is empty now; a tokenless retry reports that instead of replaying
	if rec, _ := postCheckout(t, h, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty-cart retry status = %d, want 400", rec.Code)
	}
}

type fakeOrderStore struct {
	ord           *orders.Order
	statusCalls   []orders.Status
	cancelledAs   []string
	cancelReturns *orders.Order
}

func (f *fakeOrderStore) Get(context.Context, string) (*orders.Order, error) { return f.ord, nil }

func (f *fakeOrderStore) List(context.Context, orders.Filter) (orders.Page, error) {
	return orders.Page{}, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, _ string, to orders.Status) (*orders.Order, error) {
	f.statusCalls = append(f.statusCalls, to)
	o := *f.ord
	o.Status = to
	return &o, nil
}

func (f *fakeOrderStore) UpdatePaymentStatus(_ context.Context, _ string, ps orders.PaymentStatus) (*orders.Order, error) {
	o := *f.ord
	o.PaymentStatus = ps
	return &o, nil
}

func (f *fakeOrderStore) Cancel(_ context.Context, orderID, requestingUserID string) (*orders.Order, error) {
	f.cancelledAs = append(f.cancelledAs, requestingUserID)
	return f.cancelReturns, nil
}

func (f *fakeOrderStore) Stats(context.Context) (orders.Stats, error) { return orders.Stats{}, nil }

func TestUpdateStatusCancelledRunsCompensation(t *testing.T) {
	ord := &orders.Order{ID: "o1", Number: "PRJ-20250601-AAAA1111", UserID: "u1", Status: orders.StatusPending}
	cancelled := *ord
	cancelled.Status = orders.StatusCancelled
	store := &fakeOrderStore{ord: ord, cancelReturns: &cancelled}

	h := &OrdersHandler{
		Repo:    store,
		Redis:   newMemCache(),
		Metrics: testMetrics(),
		Log:     zap.NewNop(),
	}

	r := authedRequest(http.MethodPatch, "/admin/orders/o1/status", statusReq{Status: orders.StatusCancelled})
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "o1")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.updateStatus(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(store.statusCalls) != 0 {
		t.Fatalf("cancelled must not hit the plain status write, got %v", store.statusCalls)
	}
	if len(store.cancelledAs) != 1 || store.cancelledAs[0] != "" {
		t.Fatalf("expected one administrative cancel, got %v", store.cancelledAs)
	}

	var got orders.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != orders.StatusCancelled {
		t.Fatalf("response status = %s, want cancelled", got.Status)
	}
}
