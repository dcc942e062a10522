package entity

import (
	"time"
)

// Product represents a catalog product. The catalog is read-only for the
// transaction core; prices are copied into the cart at add time.
type Product struct {
	ID            string  `json:"id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	ImageURL      string  `json:"image_url"`
	Category      string  `json:"category"`
	InStock       bool    `json:"in_stock"`
}

// LineItem is one cart slot: a product, quantity, and optional variant
// selection. Quantity is always >= 1; a zero-quantity update removes the slot.
type LineItem struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	Name              string  `json:"name"`
	UnitPrice         float64 `json:"unit_price"`
	OriginalUnitPrice float64 `json:"original_unit_price,omitempty"`
	Quantity          int     `json:"quantity"`
	Size              string  `json:"size,omitempty"`
	Color             string  `json:"color,omitempty"`
}

// variantKey identifies a cart slot. Two variants of the same product stay
// distinct slots.
func (li LineItem) variantKey() string {
	return li.ProductID + "|" + li.Size + "|" + li.Color
}

// AppliedPromo is the single promo-code slot a cart may hold.
type AppliedPromo struct {
	Code string  `json:"code"`
	Rate float64 `json:"rate"`
}

// CartTotals is the derived pricing breakdown. Tax applies to the discounted
// subtotal only; shipping is never taxed.
type CartTotals struct {
	ItemCount          int     `json:"item_count"`
	Subtotal           float64 `json:"subtotal"`
	Discount           float64 `json:"discount"`
	DiscountedSubtotal float64 `json:"discounted_subtotal"`
	Shipping           float64 `json:"shipping"`
	Tax                float64 `json:"tax"`
	Total              float64 `json:"total"`
	Savings            float64 `json:"savings"`
}

// ShippingInfo is the destination captured at checkout.
type ShippingInfo struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// TimelineEntry is an append-only record of an order's status history.
// Completed marks a historical step; the currently-pending step carries false.
type TimelineEntry struct {
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	Completed   bool      `json:"completed"`
	Description string    `json:"description,omitempty"`
}

// Order is the read-model view of an order. Totals are frozen at checkout and
// never recomputed, even if catalog prices change later.
type Order struct {
	ID            string          `json:"id"`
	Status        OrderStatus     `json:"status"`
	Items         []LineItem      `json:"items"`
	Subtotal      float64         `json:"subtotal"`
	Discount      float64         `json:"discount"`
	Shipping      float64         `json:"shipping"`
	Tax           float64         `json:"tax"`
	Total         float64         `json:"total"`
	PromoCode     string          `json:"promo_code,omitempty"`
	ShippingInfo  ShippingInfo    `json:"shipping_info"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Timeline      []TimelineEntry `json:"timeline"`
	CreatedAt     time.Time       `json:"created_at"`
}

// --- Events ---

// ItemAddedToCart is emitted when a product (variant) is added to a cart.
// When the variant is already in the cart the quantities merge and the
// original slot id wins.
type ItemAddedToCart struct {
	CartID            string  `json:"cart_id"`
	LineItemID        string  `json:"line_item_id"`
	ProductID         string  `json:"product_id"`
	Name              string  `json:"name"`
	UnitPrice         float64 `json:"unit_price"`
	OriginalUnitPrice float64 `json:"original_unit_price,omitempty"`
	Quantity          int     `json:"quantity"`
	Size              string  `json:"size,omitempty"`
	Color             string  `json:"color,omitempty"`
}

func (e ItemAddedToCart) EventType() string { return "ItemAddedToCart" }

// CartItemQuantitySet overwrites a line item's quantity.
type CartItemQuantitySet struct {
	CartID     string `json:"cart_id"`
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
}

func (e CartItemQuantitySet) EventType() string { return "CartItemQuantitySet" }

// ItemRemovedFromCart removes a line item regardless of its quantity.
type ItemRemovedFromCart struct {
	CartID     string `json:"cart_id"`
	LineItemID string `json:"line_item_id"`
}

func (e ItemRemovedFromCart) EventType() string { return "ItemRemovedFromCart" }

// PromoApplied replaces whatever promo was active before it.
type PromoApplied struct {
	CartID string  `json:"cart_id"`
	Code   string  `json:"code"`
	Rate   float64 `json:"rate"`
}

func (e PromoApplied) EventType() string { return "PromoApplied" }

// PromoRemoved clears the applied-promo slot.
type PromoRemoved struct {
	CartID string `json:"cart_id"`
}

func (e PromoRemoved) EventType() string { return "PromoRemoved" }

// CartCleared empties the cart unconditionally.
type CartCleared struct {
	CartID string `json:"cart_id"`
}

func (e CartCleared) EventType() string { return "CartCleared" }

// CartCheckedOut empties the cart as part of the checkout transaction.
type CartCheckedOut struct {
	CartID  string `json:"cart_id"`
	OrderID string `json:"order_id"`
}

func (e CartCheckedOut) EventType() string { return "CartCheckedOut" }

// OrderPlaced freezes the cart snapshot into a new order.
type OrderPlaced struct {
	OrderID       string       `json:"order_id"`
	Items         []LineItem   `json:"items"`
	Subtotal      float64      `json:"subtotal"`
	Discount      float64      `json:"discount"`
	Shipping      float64      `json:"shipping"`
	Tax           float64      `json:"tax"`
	Total         float64      `json:"total"`
	PromoCode     string       `json:"promo_code,omitempty"`
	ShippingInfo  ShippingInfo `json:"shipping_info"`
	PaymentMethod string       `json:"payment_method"`
	Notes         string       `json:"notes,omitempty"`
	PlacedAt      time.Time    `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted for every lifecycle transition, customer or
// admin initiated.
type OrderStatusChanged struct {
	OrderID   string      `json:"order_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Note      string      `json:"note,omitempty"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }
