package entity

import (
	"encoding/json"
	"fmt"
	"math"
)

// Pricing constants for the totals pipeline.
const (
	FreeShippingThreshold = 500.0
	FlatShippingFee       = 50.0
	TaxRate               = 0.08
)

// CartAggregate manages the state of a shopping cart by replaying events.
// Line items keep insertion order; identity is (product, size, color).
type CartAggregate struct {
	AggregateBase
	Items []*LineItem
	Promo *AppliedPromo
}

// NewCartAggregate creates a new CartAggregate.
func NewCartAggregate(cartID string) *CartAggregate {
	return &CartAggregate{
		AggregateBase: AggregateBase{ID: cartID, Version: 0},
	}
}

// FindItem returns the line item with the given slot id, or nil.
func (a *CartAggregate) FindItem(lineItemID string) *LineItem {
	for _, item := range a.Items {
		if item.ID == lineItemID {
			return item
		}
	}
	return nil
}

func (a *CartAggregate) removeItem(lineItemID string) {
	for i, item := range a.Items {
		if item.ID == lineItemID {
			a.Items = append(a.Items[:i], a.Items[i+1:]...)
			return
		}
	}
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *CartAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case ItemAddedToCart:
		added := LineItem{
			ID:                e.LineItemID,
			ProductID:         e.ProductID,
			Name:              e.Name,
			UnitPrice:         e.UnitPrice,
			OriginalUnitPrice: e.OriginalUnitPrice,
			Quantity:          max(e.Quantity, 1),
			Size:              e.Size,
			Color:             e.Color,
		}
		merged := false
		for _, item := range a.Items {
			if item.variantKey() == added.variantKey() {
				item.Quantity += added.Quantity
				merged = true
				break
			}
		}
		if !merged {
			a.Items = append(a.Items, &added)
		}
	case CartItemQuantitySet:
		if item := a.FindItem(e.LineItemID); item != nil {
			if e.Quantity <= 0 {
				a.removeItem(e.LineItemID)
			} else {
				item.Quantity = e.Quantity
			}
		}
	case ItemRemovedFromCart:
		// Absent id means already removed; not an error.
		a.removeItem(e.LineItemID)
	case PromoApplied:
		a.Promo = &AppliedPromo{Code: e.Code, Rate: e.Rate}
	case PromoRemoved:
		a.Promo = nil
	case CartCleared:
		a.Items = nil
		a.Promo = nil
	case CartCheckedOut:
		a.Items = nil
		a.Promo = nil
	default:
		return fmt.Errorf("unknown event type for CartAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

// Totals computes the pricing pipeline: subtotal, promo discount, shipping
// against the free-shipping threshold, then tax on the discounted subtotal.
// Shipping itself is not taxed. Totals are consistent immediately after every
// mutation since they are derived, never stored.
func (a *CartAggregate) Totals() CartTotals {
	t := CartTotals{}
	for _, item := range a.Items {
		t.ItemCount += item.Quantity
		t.Subtotal += item.UnitPrice * float64(item.Quantity)
	}

	if a.Promo != nil {
		t.Discount = round2(t.Subtotal * a.Promo.Rate)
	}
	t.DiscountedSubtotal = round2(t.Subtotal - t.Discount)

	if len(a.Items) > 0 && t.DiscountedSubtotal <= FreeShippingThreshold {
		t.Shipping = FlatShippingFee
	}

	t.Tax = round2(t.DiscountedSubtotal * TaxRate)
	t.Total = round2(t.DiscountedSubtotal + t.Shipping + t.Tax)

	// Savings is display-only: the promo discount plus the waived flat fee
	// when the order ships free. The authoritative figure is Total.
	t.Savings = t.Discount
	if len(a.Items) > 0 && t.Shipping == 0 {
		t.Savings = round2(t.Savings + FlatShippingFee)
	}
	return t
}

// Snapshot returns a copy of the line items, detached from the aggregate.
func (a *CartAggregate) Snapshot() []LineItem {
	items := make([]LineItem, len(a.Items))
	for i, item := range a.Items {
		items[i] = *item
	}
	return items
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *CartAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		var err error
		switch rec.EventType {
		case "ItemAddedToCart":
			var e ItemAddedToCart
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "CartItemQuantitySet":
			var e CartItemQuantitySet
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "ItemRemovedFromCart":
			var e ItemRemovedFromCart
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "PromoApplied":
			var e PromoApplied
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "PromoRemoved":
			var e PromoRemoved
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "CartCleared":
			var e CartCleared
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "CartCheckedOut":
			var e CartCheckedOut
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		default:
			return fmt.Errorf("unknown event type in cart stream: %s", rec.EventType)
		}
		if err != nil {
			return fmt.Errorf("failed to apply cart event from stream: %w", err)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
