package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/messaging"
	"github.com/egannguyen/storefront-core/internal/metrics"
	"github.com/egannguyen/storefront-core/internal/query"
	"github.com/egannguyen/storefront-core/internal/repository"
	"github.com/google/uuid"
)

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutRequest carries the checkout form data captured from the customer.
type CheckoutRequest struct {
	ShippingInfo  entity.ShippingInfo `json:"shipping_info"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes,omitempty"`
}

// OrderSummary aggregates the unfiltered order collection for the account and
// admin dashboards.
type OrderSummary struct {
	TotalOrders    int            `json:"total_orders"`
	ActiveOrders   int            `json:"active_orders"`
	DeliveredCount int            `json:"delivered_count"`
	TotalSpent     float64        `json:"total_spent"`
	ByStatus       map[string]int `json:"by_status"`
}

// OrderService orchestrates checkout and the order lifecycle.
type OrderService struct {
	orderRepo  repository.OrderRepository
	eventStore repository.EventStore
	cache      repository.CartCache
	publisher  messaging.Publisher
	carts      *CartService
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	eventStore repository.EventStore,
	cache repository.CartCache,
	publisher messaging.Publisher,
	carts *CartService,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		eventStore: eventStore,
		cache:      cache,
		publisher:  publisher,
		carts:      carts,
	}
}

// Checkout converts the cart into a new order. The OrderPlaced event and the
// cart's CartCheckedOut event land in one transaction: a failure leaves
// neither a partial order nor a cleared cart.
func (s *OrderService) Checkout(ctx context.Context, cartID string, req CheckoutRequest) (string, error) {
	slog.Info("Service: Checking out cart", "cart_id", cartID)

	records, err := s.eventStore.LoadEvents(ctx, cartID)
	if err != nil {
		return "", fmt.Errorf("failed to load cart history: %w", err)
	}

	cart := entity.NewCartAggregate(cartID)
	if err := cart.Rehydrate(records); err != nil {
		return "", fmt.Errorf("failed to rehydrate cart aggregate: %w", err)
	}

	if len(cart.Items) == 0 {
		return "", ErrEmptyCart
	}

	totals := cart.Totals()
	orderID := uuid.NewString()
	promoCode := ""
	if cart.Promo != nil {
		promoCode = cart.Promo.Code
	}

	placed := entity.OrderPlaced{
		OrderID:       orderID,
		Items:         cart.Snapshot(),
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Shipping:      totals.Shipping,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PromoCode:     promoCode,
		ShippingInfo:  req.ShippingInfo,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		PlacedAt:      time.Now(),
	}

	err = s.eventStore.SaveStreams(ctx, []repository.StreamAppend{
		{StreamID: orderID, StreamType: "order", ExpectedVersion: 0, Events: []entity.Event{placed}},
		{StreamID: cartID, StreamType: "cart", ExpectedVersion: cart.GetVersion(), Events: []entity.Event{entity.CartCheckedOut{CartID: cartID, OrderID: orderID}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to save checkout events: %w", err)
	}

	if err := s.cache.Invalidate(ctx, cartID); err != nil {
		slog.Error("Failed to invalidate cart cache", "cart_id", cartID, "err", err)
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrderPlaced, orderID, placed); err != nil {
		return "", fmt.Errorf("failed to publish OrderPlaced event: %w", err)
	}

	metrics.OrdersPlaced.Inc()
	metrics.OrderValue.Observe(totals.Total)

	slog.Info("Order placed", "order_id", orderID, "total", totals.Total)
	return orderID, nil
}

// UpdateStatus is the admin path: any non-terminal order may be set directly
// to any other status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to entity.OrderStatus, note string) error {
	return s.changeStatus(ctx, orderID, to, note, func(agg *entity.OrderAggregate) error {
		return agg.ValidateTransition(to)
	})
}

// CancelOrder is the customer path: only processing or confirmed orders may
// be cancelled. A late cancellation is reported as an error with no state
// change.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	return s.changeStatus(ctx, orderID, entity.StatusCancelled, "Cancelled by customer", func(agg *entity.OrderAggregate) error {
		return agg.ValidateCancel()
	})
}

func (s *OrderService) changeStatus(ctx context.Context, orderID string, to entity.OrderStatus, note string, validate func(*entity.OrderAggregate) error) error {
	records, err := s.eventStore.LoadEvents(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
	}

	agg := entity.NewOrderAggregate(orderID)
	if err := agg.Rehydrate(records); err != nil {
		return fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}

	if err := validate(agg); err != nil {
		return err
	}

	changed := entity.OrderStatusChanged{
		OrderID:   orderID,
		From:      agg.Status,
		To:        to,
		Note:      note,
		ChangedAt: time.Now(),
	}

	err = s.eventStore.SaveEvents(ctx, orderID, "order", agg.GetVersion(), []entity.Event{changed})
	if err != nil {
		return fmt.Errorf("failed to save OrderStatusChanged event: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrderStatusChanged, orderID, changed); err != nil {
		slog.Error("Failed to publish OrderStatusChanged", "order_id", orderID, "err", err)
	}

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	slog.Info("Order status changed", "order_id", orderID, "from", changed.From, "to", changed.To)
	return nil
}

// Reorder re-adds an order's frozen line items to a cart at their frozen
// prices. The order itself is read-only here.
func (s *OrderService) Reorder(ctx context.Context, orderID, cartID string) (*repository.CartSnapshot, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var snap *repository.CartSnapshot
	for _, item := range order.Items {
		snap, err = s.carts.AddLine(ctx, cartID, item)
		if err != nil {
			return nil, fmt.Errorf("failed to re-add item %s: %w", item.ProductID, err)
		}
	}

	metrics.CartOperations.WithLabelValues("reorder").Inc()
	return snap, nil
}

// GetOrder returns one order from the read model.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ListOrders runs the query engine over the full collection.
func (s *OrderService) ListOrders(ctx context.Context, params query.Params) (query.Result, error) {
	orders, err := s.orderRepo.FindAll(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return query.Run(orders, params), nil
}

// Summary aggregates the unfiltered collection.
func (s *OrderService) Summary(ctx context.Context) (OrderSummary, error) {
	orders, err := s.orderRepo.FindAll(ctx)
	if err != nil {
		return OrderSummary{}, err
	}

	byStatus := make(map[string]int)
	for _, o := range orders {
		byStatus[string(o.Status)]++
	}

	return OrderSummary{
		TotalOrders:    len(orders),
		ActiveOrders:   query.ActiveCount(orders),
		DeliveredCount: query.DeliveredCount(orders),
		TotalSpent:     query.TotalSpent(orders),
		ByStatus:       byStatus,
	}, nil
}

// HandleOrderPlaced is triggered by the message broker when an order is
// placed; it updates the read-model projection.
func (s *OrderService) HandleOrderPlaced(ctx context.Context, event *entity.OrderPlaced) error {
	slog.Info("Projection: Updating OrderPlaced", "order_id", event.OrderID)
	return s.orderRepo.UpdateOrderProjection(ctx, *event)
}

// HandleOrderStatusChanged updates the read model when a status transition
// lands.
func (s *OrderService) HandleOrderStatusChanged(ctx context.Context, event *entity.OrderStatusChanged) error {
	slog.Info("Projection: Updating OrderStatusChanged", "order_id", event.OrderID, "to", event.To)
	return s.orderRepo.UpdateOrderProjection(ctx, *event)
}
