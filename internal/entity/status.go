package entity

import "fmt"

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusReturned   OrderStatus = "returned"
)

// fulfillmentPath is the success path in order; Cancelled/Returned sit outside it.
var fulfillmentPath = []OrderStatus{StatusProcessing, StatusConfirmed, StatusShipped, StatusDelivered}

var statusLabels = map[OrderStatus]string{
	StatusProcessing: "Processing",
	StatusConfirmed:  "Confirmed",
	StatusShipped:    "Shipped",
	StatusDelivered:  "Delivered",
	StatusCancelled:  "Cancelled",
	StatusReturned:   "Returned",
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := statusLabels[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Label returns the human-readable form ("processing" -> "Processing").
func (s OrderStatus) Label() string {
	return statusLabels[s]
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Cancellable reports whether a customer may still cancel from this state.
// Once shipped, cancellation turns into a return flow instead.
func (s OrderStatus) Cancellable() bool {
	return s == StatusProcessing || s == StatusConfirmed
}

// Progress returns the fulfillment completion ratio for display.
// Cancelled and returned orders freeze at the start of the path rather than
// continuing the normal sequence.
func (s OrderStatus) Progress() float64 {
	if s == StatusCancelled || s == StatusReturned {
		return 1.0 / float64(len(fulfillmentPath))
	}
	for i, st := range fulfillmentPath {
		if st == s {
			return float64(i+1) / float64(len(fulfillmentPath))
		}
	}
	return 0
}
