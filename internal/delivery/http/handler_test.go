package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/repository"
	"github.com/egannguyen/storefront-core/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes wired straight through: the publisher projects synchronously, so
// handler tests see read-after-write without a broker in the loop.

type stubEventStore struct {
	streams map[string][]entity.EventStoreRecord
}

func (s *stubEventStore) SaveEvents(ctx context.Context, streamID, streamType string, expectedVersion int, events []entity.Event) error {
	return s.SaveStreams(ctx, []repository.StreamAppend{{StreamID: streamID, StreamType: streamType, ExpectedVersion: expectedVersion, Events: events}})
}

func (s *stubEventStore) SaveStreams(_ context.Context, appends []repository.StreamAppend) error {
	for _, app := range appends {
		if len(s.streams[app.StreamID]) != app.ExpectedVersion {
			return fmt.Errorf("concurrency exception on stream %s", app.StreamID)
		}
	}
	for _, app := range appends {
		version := app.ExpectedVersion
		for _, event := range app.Events {
			version++
			payload, _ := json.Marshal(event)
			s.streams[app.StreamID] = append(s.streams[app.StreamID], entity.EventStoreRecord{
				StreamID: app.StreamID, StreamType: app.StreamType, Version: version,
				EventType: event.EventType(), Payload: payload, CreatedAt: time.Now(),
			})
		}
	}
	return nil
}

func (s *stubEventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	return s.streams[streamID], nil
}

type stubOrderRepo struct {
	orders []*entity.Order
}

func (r *stubOrderRepo) UpdateOrderProjection(_ context.Context, event entity.Event) error {
	switch e := event.(type) {
	case entity.OrderPlaced:
		r.orders = append(r.orders, &entity.Order{
			ID: e.OrderID, Status: entity.StatusProcessing, Items: e.Items,
			Subtotal: e.Subtotal, Discount: e.Discount, Shipping: e.Shipping, Tax: e.Tax, Total: e.Total,
			PromoCode: e.PromoCode, ShippingInfo: e.ShippingInfo, PaymentMethod: e.PaymentMethod,
			Notes: e.Notes, CreatedAt: e.PlacedAt,
			Timeline: []entity.TimelineEntry{
				{Status: "Order Placed", Date: e.PlacedAt, Completed: true},
				{Status: entity.StatusProcessing.Label(), Date: e.PlacedAt, Completed: false},
			},
		})
	case entity.OrderStatusChanged:
		for _, o := range r.orders {
			if o.ID == e.OrderID && o.Status == e.From {
				for i := range o.Timeline {
					o.Timeline[i].Completed = true
				}
				o.Timeline = append(o.Timeline, entity.TimelineEntry{Status: e.To.Label(), Date: e.ChangedAt, Completed: e.To.IsTerminal()})
				o.Status = e.To
			}
		}
	}
	return nil
}

func (r *stubOrderRepo) FindAll(_ context.Context) ([]entity.Order, error) {
	out := make([]entity.Order, len(r.orders))
	for i, o := range r.orders {
		out[i] = *o
	}
	return out, nil
}

func (r *stubOrderRepo) FindRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	return r.FindAll(ctx)
}

func (r *stubOrderRepo) FindByID(_ context.Context, orderID string) (*entity.Order, error) {
	for _, o := range r.orders {
		if o.ID == orderID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
}

type stubCache struct {
	snaps map[string]*repository.CartSnapshot
}

func (c *stubCache) Get(_ context.Context, cartID string) (*repository.CartSnapshot, error) {
	return c.snaps[cartID], nil
}

func (c *stubCache) Set(_ context.Context, snap *repository.CartSnapshot) error {
	c.snaps[snap.CartID] = snap
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, cartID string) error {
	delete(c.snaps, cartID)
	return nil
}

type projectingPublisher struct {
	repo *stubOrderRepo
}

func (p *projectingPublisher) PublishEvent(ctx context.Context, _ string, _ string, event any) error {
	if e, ok := event.(entity.Event); ok {
		return p.repo.UpdateOrderProjection(ctx, e)
	}
	return nil
}

type stubProductRepo struct {
	products []entity.Product
}

func (r *stubProductRepo) FindAll(_ context.Context) ([]entity.Product, error) {
	return r.products, nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s not found", id)
}

func (r *stubProductRepo) FindByCategory(_ context.Context, category string) ([]entity.Product, error) {
	var out []entity.Product
	for _, p := range r.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Seed(_ context.Context, products []entity.Product) error {
	r.products = products
	return nil
}

func newTestServer() *httptest.Server {
	products := &stubProductRepo{products: []entity.Product{
		{ID: "prod-1", Name: "Wireless Headphones", Price: 100, Category: "Electronics", InStock: true},
		{ID: "prod-2", Name: "Desk Lamp", Price: 89.99, Category: "Home", InStock: true},
	}}
	store := &stubEventStore{streams: make(map[string][]entity.EventStoreRecord)}
	orderRepo := &stubOrderRepo{}
	cache := &stubCache{snaps: make(map[string]*repository.CartSnapshot)}
	publisher := &projectingPublisher{repo: orderRepo}

	cartSvc := service.NewCartService(products, store, cache)
	orderSvc := service.NewOrderService(orderRepo, store, cache, publisher, cartSvc)

	mux := http.NewServeMux()
	NewHandler(products, cartSvc, orderSvc).RegisterRoutes(mux)
	return httptest.NewServer(EnableCORS(mux))
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(res.Body)
	require.NoError(t, err)
	return res, out.Bytes()
}

func TestCartCheckoutFlow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	// Add an item.
	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/items", map[string]any{
		"product_id": "prod-1", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var snap repository.CartSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 266.0, snap.Totals.Total)

	// Invalid promo is an inline validation failure, not a fault.
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/promo", map[string]string{"code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/promo", map[string]string{"code": "save10"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 244.4, snap.Totals.Total)

	// Checkout.
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/checkout", service.CheckoutRequest{
		ShippingInfo:  entity.ShippingInfo{Name: "Jamie Doe", Address: "1 Main St"},
		PaymentMethod: "card",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var created map[string]string
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created["order_id"]
	require.NotEmpty(t, orderID)

	// Cart is cleared.
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/carts/cart-1", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Empty(t, snap.Items)

	// Order is visible with display attributes.
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var view struct {
		entity.Order
		Display  StatusDisplay `json:"display"`
		Progress float64       `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, entity.StatusProcessing, view.Status)
	assert.Equal(t, "Processing", view.Display.Label)
	assert.Equal(t, 0.25, view.Progress)
	assert.Equal(t, 244.4, view.Total)
}

func TestCheckoutEmptyCart(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/carts/empty/checkout", service.CheckoutRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
}

func TestCancelAndAdminStatus(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/items", map[string]any{"product_id": "prod-2", "quantity": 1})
	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/cart-1/checkout", service.CheckoutRequest{PaymentMethod: "card"})

	var created map[string]string
	require.NoError(t, json.Unmarshal(body, &created))
	orderID := created["order_id"]

	// Customer cancel succeeds while processing.
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+orderID+"/cancel", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	// Second cancel conflicts: the order is already terminal.
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+orderID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// Admin cannot move a terminal order either.
	res, _ = doJSON(t, http.MethodPut, srv.URL+"/api/admin/orders/"+orderID+"/status", map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// Unknown status is a bad request.
	res, _ = doJSON(t, http.MethodPut, srv.URL+"/api/admin/orders/"+orderID+"/status", map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestOrderNotFound(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	res, _ := doJSON(t, http.MethodGet, srv.URL+"/api/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListOrdersEndpoint(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	for _, cart := range []string{"c1", "c2", "c3"} {
		doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+cart+"/items", map[string]any{"product_id": "prod-1", "quantity": 1})
		doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+cart+"/checkout", service.CheckoutRequest{PaymentMethod: "card"})
	}

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/orders?status=all&limit=2", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var listed struct {
		Orders       []json.RawMessage `json:"orders"`
		TotalMatched int               `json:"total_matched"`
		Displayed    int               `json:"displayed"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Equal(t, 3, listed.TotalMatched)
	assert.Equal(t, 2, listed.Displayed)
	assert.Len(t, listed.Orders, 2)
}

func TestDisplayFor(t *testing.T) {
	d := DisplayFor(entity.StatusShipped)
	assert.Equal(t, "Shipped", d.Label)
	assert.Equal(t, "truck", d.Icon)

	fallback := DisplayFor(entity.OrderStatus("mystery"))
	assert.Equal(t, "mystery", fallback.Label)
}
