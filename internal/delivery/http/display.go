package http

import "github.com/egannguyen/storefront-core/internal/entity"

// StatusDisplay is the UI-facing presentation of an order status. Kept out of
// the domain layer: icons and colors are a rendering concern.
type StatusDisplay struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var statusDisplays = map[entity.OrderStatus]StatusDisplay{
	entity.StatusProcessing: {Label: "Processing", Icon: "clock", Color: "amber"},
	entity.StatusConfirmed:  {Label: "Confirmed", Icon: "check-circle", Color: "blue"},
	entity.StatusShipped:    {Label: "Shipped", Icon: "truck", Color: "indigo"},
	entity.StatusDelivered:  {Label: "Delivered", Icon: "package-check", Color: "green"},
	entity.StatusCancelled:  {Label: "Cancelled", Icon: "x-circle", Color: "red"},
	entity.StatusReturned:   {Label: "Returned", Icon: "rotate-ccw", Color: "gray"},
}

// DisplayFor maps a status to its presentation attributes.
func DisplayFor(status entity.OrderStatus) StatusDisplay {
	if d, ok := statusDisplays[status]; ok {
		return d
	}
	return StatusDisplay{Label: string(status), Icon: "help-circle", Color: "gray"}
}

// orderView is an order enriched with display attributes and progress.
type orderView struct {
	entity.Order
	Display  StatusDisplay `json:"display"`
	Progress float64       `json:"progress"`
}

func decorateOne(o entity.Order) orderView {
	return orderView{
		Order:    o,
		Display:  DisplayFor(o.Status),
		Progress: o.Status.Progress(),
	}
}

func decorate(orders []entity.Order) []orderView {
	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = decorateOne(o)
	}
	return views
}
