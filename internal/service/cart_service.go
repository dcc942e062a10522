package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/metrics"
	"github.com/egannguyen/storefront-core/internal/repository"
	"github.com/google/uuid"
)

// CartService orchestrates shopping cart logic using Event Sourcing. Every
// mutation replays the cart stream, validates, appends, and refreshes the
// snapshot cache, so totals are consistent the moment a call returns.
type CartService struct {
	productRepo repository.ProductRepository
	eventStore  repository.EventStore
	cache       repository.CartCache
}

func NewCartService(productRepo repository.ProductRepository, eventStore repository.EventStore, cache repository.CartCache) *CartService {
	return &CartService{
		productRepo: productRepo,
		eventStore:  eventStore,
		cache:       cache,
	}
}

// AddItem adds a product variant to the cart, copying catalog pricing at add
// time. An existing (product, size, color) slot merges quantities instead of
// creating a duplicate.
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int, size, color string) (*repository.CartSnapshot, error) {
	slog.Info("Service: Adding item to cart", "cart_id", cartID, "product_id", productID, "quantity", quantity)

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product: %w", err)
	}

	return s.addLine(ctx, cartID, entity.LineItem{
		ProductID:         product.ID,
		Name:              product.Name,
		UnitPrice:         product.Price,
		OriginalUnitPrice: product.OriginalPrice,
		Quantity:          quantity,
		Size:              size,
		Color:             color,
	})
}

// AddLine re-adds an already-priced line item, used by reorder where the
// order's frozen prices apply rather than current catalog prices.
func (s *CartService) AddLine(ctx context.Context, cartID string, item entity.LineItem) (*repository.CartSnapshot, error) {
	return s.addLine(ctx, cartID, item)
}

func (s *CartService) addLine(ctx context.Context, cartID string, item entity.LineItem) (*repository.CartSnapshot, error) {
	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	event := entity.ItemAddedToCart{
		CartID:            cartID,
		LineItemID:        uuid.NewString(),
		ProductID:         item.ProductID,
		Name:              item.Name,
		UnitPrice:         item.UnitPrice,
		OriginalUnitPrice: item.OriginalUnitPrice,
		Quantity:          max(item.Quantity, 1),
		Size:              item.Size,
		Color:             item.Color,
	}

	metrics.CartOperations.WithLabelValues("add_item").Inc()
	return s.commit(ctx, agg, event)
}

// UpdateQuantity overwrites a line item's quantity. A quantity of zero or
// below removes the item; an absent id or unchanged quantity is a no-op.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, lineItemID string, quantity int) (*repository.CartSnapshot, error) {
	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	item := agg.FindItem(lineItemID)
	if item == nil {
		return s.snapshot(ctx, agg), nil
	}

	metrics.CartOperations.WithLabelValues("update_quantity").Inc()

	if quantity <= 0 {
		return s.commit(ctx, agg, entity.ItemRemovedFromCart{CartID: cartID, LineItemID: lineItemID})
	}
	if item.Quantity == quantity {
		return s.snapshot(ctx, agg), nil
	}
	return s.commit(ctx, agg, entity.CartItemQuantitySet{CartID: cartID, LineItemID: lineItemID, Quantity: quantity})
}

// RemoveItem removes a line item regardless of quantity. Removing an id that
// is not in the cart is treated as already removed.
func (s *CartService) RemoveItem(ctx context.Context, cartID, lineItemID string) (*repository.CartSnapshot, error) {
	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if agg.FindItem(lineItemID) == nil {
		return s.snapshot(ctx, agg), nil
	}

	metrics.CartOperations.WithLabelValues("remove_item").Inc()
	return s.commit(ctx, agg, entity.ItemRemovedFromCart{CartID: cartID, LineItemID: lineItemID})
}

// ApplyPromo validates the code and replaces any previously applied promo.
// An invalid code leaves the cart untouched.
func (s *CartService) ApplyPromo(ctx context.Context, cartID, code string) (*repository.CartSnapshot, error) {
	promo, err := entity.LookupPromo(code)
	if err != nil {
		metrics.PromoRejections.Inc()
		return nil, err
	}

	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	metrics.CartOperations.WithLabelValues("apply_promo").Inc()
	return s.commit(ctx, agg, entity.PromoApplied{CartID: cartID, Code: promo.Code, Rate: promo.Rate})
}

// RemovePromo clears the applied promo slot. Removing when none is applied is
// a no-op.
func (s *CartService) RemovePromo(ctx context.Context, cartID string) (*repository.CartSnapshot, error) {
	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if agg.Promo == nil {
		return s.snapshot(ctx, agg), nil
	}

	metrics.CartOperations.WithLabelValues("remove_promo").Inc()
	return s.commit(ctx, agg, entity.PromoRemoved{CartID: cartID})
}

// Clear empties the cart unconditionally.
func (s *CartService) Clear(ctx context.Context, cartID string) (*repository.CartSnapshot, error) {
	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if len(agg.Items) == 0 && agg.Promo == nil {
		return s.snapshot(ctx, agg), nil
	}

	metrics.CartOperations.WithLabelValues("clear").Inc()
	return s.commit(ctx, agg, entity.CartCleared{CartID: cartID})
}

// GetCart returns the current cart view, from cache when possible and by
// replaying the stream otherwise.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*repository.CartSnapshot, error) {
	cached, err := s.cache.Get(ctx, cartID)
	if err != nil {
		slog.Error("Cart cache read failed, falling back to event store", "cart_id", cartID, "err", err)
	} else if cached != nil {
		return cached, nil
	}

	agg, err := s.loadAggregate(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, agg), nil
}

func (s *CartService) loadAggregate(ctx context.Context, cartID string) (*entity.CartAggregate, error) {
	records, err := s.eventStore.LoadEvents(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart history: %w", err)
	}

	agg := entity.NewCartAggregate(cartID)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate cart aggregate: %w", err)
	}
	return agg, nil
}

// commit appends the event, applies it in memory, and writes through the
// snapshot cache.
func (s *CartService) commit(ctx context.Context, agg *entity.CartAggregate, event entity.Event) (*repository.CartSnapshot, error) {
	err := s.eventStore.SaveEvents(ctx, agg.GetAggregateID(), "cart", agg.GetVersion(), []entity.Event{event})
	if err != nil {
		return nil, fmt.Errorf("failed to save %s event: %w", event.EventType(), err)
	}

	if err := agg.ApplyEvent(event); err != nil {
		return nil, fmt.Errorf("failed to apply %s event: %w", event.EventType(), err)
	}

	return s.snapshot(ctx, agg), nil
}

func (s *CartService) snapshot(ctx context.Context, agg *entity.CartAggregate) *repository.CartSnapshot {
	snap := &repository.CartSnapshot{
		CartID:  agg.GetAggregateID(),
		Version: agg.GetVersion(),
		Items:   agg.Snapshot(),
		Promo:   agg.Promo,
		Totals:  agg.Totals(),
	}

	if err := s.cache.Set(ctx, snap); err != nil {
		slog.Error("Cart cache write failed", "cart_id", snap.CartID, "err", err)
	}
	return snap
}
