package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/messaging"
	"github.com/egannguyen/storefront-core/internal/repository"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes ---

type memEventStore struct {
	mu      sync.Mutex
	streams map[string][]entity.EventStoreRecord
}

func newMemEventStore() *memEventStore {
	return &memEventStore{streams: make(map[string][]entity.EventStoreRecord)}
}

func (s *memEventStore) SaveEvents(ctx context.Context, streamID, streamType string, expectedVersion int, events []entity.Event) error {
	return s.SaveStreams(ctx, []repository.StreamAppend{{
		StreamID: streamID, StreamType: streamType, ExpectedVersion: expectedVersion, Events: events,
	}})
}

func (s *memEventStore) SaveStreams(_ context.Context, appends []repository.StreamAppend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Version-check every stream before touching any, mirroring the
	// all-or-nothing transaction in the Postgres store.
	for _, app := range appends {
		if len(s.streams[app.StreamID]) != app.ExpectedVersion {
			return fmt.Errorf("concurrency exception on stream %s: expected version %d, got %d",
				app.StreamID, app.ExpectedVersion, len(s.streams[app.StreamID]))
		}
	}

	for _, app := range appends {
		version := app.ExpectedVersion
		for _, event := range app.Events {
			version++
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			s.streams[app.StreamID] = append(s.streams[app.StreamID], entity.EventStoreRecord{
				StreamID:   app.StreamID,
				StreamType: app.StreamType,
				Version:    version,
				EventType:  event.EventType(),
				Payload:    payload,
				CreatedAt:  time.Now(),
			})
		}
	}
	return nil
}

func (s *memEventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.EventStoreRecord(nil), s.streams[streamID]...), nil
}

func (s *memEventStore) version(streamID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams[streamID])
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []*entity.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{}
}

func (r *memOrderRepo) UpdateOrderProjection(_ context.Context, event entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := event.(type) {
	case entity.OrderPlaced:
		for _, o := range r.orders {
			if o.ID == e.OrderID {
				return nil // idempotent
			}
		}
		r.orders = append(r.orders, &entity.Order{
			ID:            e.OrderID,
			Status:        entity.StatusProcessing,
			Items:         e.Items,
			Subtotal:      e.Subtotal,
			Discount:      e.Discount,
			Shipping:      e.Shipping,
			Tax:           e.Tax,
			Total:         e.Total,
			PromoCode:     e.PromoCode,
			ShippingInfo:  e.ShippingInfo,
			PaymentMethod: e.PaymentMethod,
			Notes:         e.Notes,
			CreatedAt:     e.PlacedAt,
			Timeline: []entity.TimelineEntry{
				{Status: "Order Placed", Date: e.PlacedAt, Completed: true},
				{Status: entity.StatusProcessing.Label(), Date: e.PlacedAt, Completed: false},
			},
		})
	case entity.OrderStatusChanged:
		for _, o := range r.orders {
			if o.ID != e.OrderID || o.Status != e.From {
				continue
			}
			for i := range o.Timeline {
				o.Timeline[i].Completed = true
			}
			o.Timeline = append(o.Timeline, entity.TimelineEntry{
				Status: e.To.Label(), Date: e.ChangedAt, Completed: e.To.IsTerminal(), Description: e.Note,
			})
			o.Status = e.To
		}
	default:
		return fmt.Errorf("unknown event type for order projection: %s", event.EventType())
	}
	return nil
}

func (r *memOrderRepo) FindAll(_ context.Context) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Order, len(r.orders))
	for i, o := range r.orders {
		out[i] = *o
	}
	return out, nil
}

func (r *memOrderRepo) FindRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	orders, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, orderID string) (*entity.Order, error) {
	orders, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
}

type memCartCache struct {
	mu    sync.Mutex
	snaps map[string]*repository.CartSnapshot
}

func newMemCartCache() *memCartCache {
	return &memCartCache{snaps: make(map[string]*repository.CartSnapshot)}
}

func (c *memCartCache) Get(_ context.Context, cartID string) (*repository.CartSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[cartID], nil
}

func (c *memCartCache) Set(_ context.Context, snapshot *repository.CartSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snapshot.CartID] = snapshot
	return nil
}

func (c *memCartCache) Invalidate(_ context.Context, cartID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, cartID)
	return nil
}

type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type memPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *memPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *memPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type memProductRepo struct {
	products []entity.Product
}

func (r *memProductRepo) FindAll(_ context.Context) ([]entity.Product, error) {
	return r.products, nil
}

func (r *memProductRepo) FindByID(_ context.Context, id string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s not found", id)
}

func (r *memProductRepo) FindByCategory(_ context.Context, category string) ([]entity.Product, error) {
	var out []entity.Product
	for _, p := range r.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) Seed(_ context.Context, products []entity.Product) error {
	r.products = products
	return nil
}

// --- test harness ---

type testEnv struct {
	store     *memEventStore
	orderRepo *memOrderRepo
	cache     *memCartCache
	publisher *memPublisher
	cartSvc   *CartService
	orderSvc  *OrderService
}

func newTestEnv() *testEnv {
	products := &memProductRepo{products: []entity.Product{
		{ID: "prod-1", Name: "Wireless Headphones", Price: 100, Category: "Electronics", InStock: true},
		{ID: "prod-2", Name: "Desk Lamp", Price: 600, Category: "Home", InStock: true},
		{ID: "prod-3", Name: "Laptop Backpack", Price: 129.99, OriginalPrice: 159.99, Category: "Accessories", InStock: true},
	}}

	env := &testEnv{
		store:     newMemEventStore(),
		orderRepo: newMemOrderRepo(),
		cache:     newMemCartCache(),
		publisher: &memPublisher{},
	}
	env.cartSvc = NewCartService(products, env.store, env.cache)
	env.orderSvc = NewOrderService(env.orderRepo, env.store, env.cache, env.publisher, env.cartSvc)
	return env
}

// deliver replays everything the publisher captured into the projection
// handlers, standing in for the Kafka consumers.
func (env *testEnv) deliver(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, pe := range env.publisher.published() {
		switch e := pe.Event.(type) {
		case entity.OrderPlaced:
			require.NoError(t, env.orderSvc.HandleOrderPlaced(ctx, &e))
		case entity.OrderStatusChanged:
			require.NoError(t, env.orderSvc.HandleOrderStatusChanged(ctx, &e))
		default:
			t.Fatalf("unexpected published event %T on topic %s", pe.Event, pe.Topic)
		}
	}
}

var _ messaging.Publisher = (*memPublisher)(nil)
