package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/storefront-core/internal/entity"
)

// ErrOrderNotFound is returned when an order id is absent from the read model.
var ErrOrderNotFound = errors.New("order not found")

// ProductRepository handles persistence for the read-only catalog.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindByCategory(ctx context.Context, category string) ([]entity.Product, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository maintains the order read model (projection).
type OrderRepository interface {
	UpdateOrderProjection(ctx context.Context, event entity.Event) error
	FindAll(ctx context.Context) ([]entity.Order, error)
	FindRecent(ctx context.Context, limit int) ([]entity.Order, error)
	FindByID(ctx context.Context, orderID string) (*entity.Order, error)
}

// StreamAppend is one stream's worth of events in a multi-stream write.
type StreamAppend struct {
	StreamID        string
	StreamType      string
	ExpectedVersion int
	Events          []entity.Event
}

// EventStore handles appending and loading events for aggregate streams.
// SaveStreams writes to several streams in one transaction, which checkout
// relies on to clear the cart and create the order atomically.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	SaveStreams(ctx context.Context, appends []StreamAppend) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// CartSnapshot is the cached view of a cart between mutations.
type CartSnapshot struct {
	CartID  string               `json:"cart_id"`
	Version int                  `json:"version"`
	Items   []entity.LineItem    `json:"items"`
	Promo   *entity.AppliedPromo `json:"promo,omitempty"`
	Totals  entity.CartTotals    `json:"totals"`
}

// CartCache is a session-scoped cache of cart snapshots. A miss is reported
// as a nil snapshot, not an error.
type CartCache interface {
	Get(ctx context.Context, cartID string) (*CartSnapshot, error)
	Set(ctx context.Context, snapshot *CartSnapshot) error
	Invalidate(ctx context.Context, cartID string) error
}
