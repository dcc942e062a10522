package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrOrderTerminal is returned for transitions requested from a terminal
	// status. The order state is never touched.
	ErrOrderTerminal = errors.New("order is in a terminal status")

	// ErrCancelNotAllowed is returned when a customer cancels an order that
	// already shipped or completed.
	ErrCancelNotAllowed = errors.New("order can no longer be cancelled")

	// ErrSameStatus is returned when a transition targets the current status.
	ErrSameStatus = errors.New("order already has the requested status")
)

// OrderAggregate manages one order's lifecycle by replaying events. Items and
// totals are a frozen snapshot written once by OrderPlaced; only the status
// and timeline change after that.
type OrderAggregate struct {
	AggregateBase
	Items         []LineItem
	Subtotal      float64
	Discount      float64
	Shipping      float64
	Tax           float64
	Total         float64
	PromoCode     string
	ShippingInfo  ShippingInfo
	PaymentMethod string
	Notes         string
	Status        OrderStatus
	Timeline      []TimelineEntry
	CreatedAt     time.Time
}

// NewOrderAggregate creates a new OrderAggregate.
func NewOrderAggregate(orderID string) *OrderAggregate {
	return &OrderAggregate{
		AggregateBase: AggregateBase{ID: orderID, Version: 0},
	}
}

// ValidateTransition checks an admin-initiated transition. Admin callers may
// set any non-terminal order directly to any other status (the back office
// exposes direct status buttons), so only terminal states and no-op targets
// are rejected.
func (a *OrderAggregate) ValidateTransition(to OrderStatus) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrOrderTerminal, a.Status)
	}
	if a.Status == to {
		return fmt.Errorf("%w: %s", ErrSameStatus, to)
	}
	return nil
}

// ValidateCancel checks a customer-initiated cancellation, which is only
// allowed before the order ships.
func (a *OrderAggregate) ValidateCancel() error {
	if !a.Status.Cancellable() {
		return fmt.Errorf("%w: status is %s", ErrCancelNotAllowed, a.Status)
	}
	return nil
}

// Progress returns the fulfillment completion ratio for display.
func (a *OrderAggregate) Progress() float64 {
	return a.Status.Progress()
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.Items = e.Items
		a.Subtotal = e.Subtotal
		a.Discount = e.Discount
		a.Shipping = e.Shipping
		a.Tax = e.Tax
		a.Total = e.Total
		a.PromoCode = e.PromoCode
		a.ShippingInfo = e.ShippingInfo
		a.PaymentMethod = e.PaymentMethod
		a.Notes = e.Notes
		a.Status = StatusProcessing
		if a.CreatedAt.IsZero() {
			a.CreatedAt = e.PlacedAt
		}
		a.Timeline = []TimelineEntry{
			{Status: "Order Placed", Date: e.PlacedAt, Completed: true, Description: "Your order has been received"},
			{Status: StatusProcessing.Label(), Date: e.PlacedAt, Completed: false, Description: "We are preparing your order"},
		}
	case OrderStatusChanged:
		// Close the pending step, then append the new one. The timeline only
		// ever grows.
		for i := range a.Timeline {
			if !a.Timeline[i].Completed {
				a.Timeline[i].Completed = true
			}
		}
		a.Timeline = append(a.Timeline, TimelineEntry{
			Status:      e.To.Label(),
			Date:        e.ChangedAt,
			Completed:   e.To.IsTerminal(),
			Description: e.Note,
		})
		a.Status = e.To
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		var err error
		switch rec.EventType {
		case "OrderPlaced":
			var e OrderPlaced
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "OrderStatusChanged":
			var e OrderStatusChanged
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		default:
			return fmt.Errorf("unknown event type in order stream: %s", rec.EventType)
		}
		if err != nil {
			return fmt.Errorf("failed to apply order event from stream: %w", err)
		}
	}
	return nil
}
