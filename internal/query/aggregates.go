package query

import "github.com/egannguyen/storefront-core/internal/entity"

// Collection aggregates are always computed over the unfiltered order list.

// CountByStatus returns how many orders are in the given status.
func CountByStatus(orders []entity.Order, status entity.OrderStatus) int {
	count := 0
	for _, o := range orders {
		if o.Status == status {
			count++
		}
	}
	return count
}

// ActiveCount returns the number of orders not yet in a terminal status.
func ActiveCount(orders []entity.Order) int {
	count := 0
	for _, o := range orders {
		if !o.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// DeliveredCount returns the number of delivered orders.
func DeliveredCount(orders []entity.Order) int {
	return CountByStatus(orders, entity.StatusDelivered)
}

// TotalSpent sums the frozen totals of every order in the collection.
// Cancellation is a status, not a deletion, so cancelled orders still count.
func TotalSpent(orders []entity.Order) float64 {
	var total float64
	for _, o := range orders {
		total += o.Total
	}
	return total
}
