// Package query implements the read-only search, sort, and windowed
// pagination engine over the order collection. It is pure: given the same
// orders and parameters it always produces the same view.
package query

import (
	"sort"
	"strings"

	"github.com/egannguyen/storefront-core/internal/entity"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// DefaultPageSize is the initial window size for incremental loading.
const DefaultPageSize = 10

type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByTotal  SortKey = "total"
	SortByStatus SortKey = "status"
)

type SortDir string

const (
	Ascending  SortDir = "asc"
	Descending SortDir = "desc"
)

// Params selects, orders, and windows the order collection.
type Params struct {
	Status string
	Search string
	Sort   SortKey
	Dir    SortDir
	Limit  int
}

// Result is a windowed view of the filtered, sorted collection.
type Result struct {
	Orders       []entity.Order
	TotalMatched int
	Displayed    int
}

// Run filters by status and free text, sorts stably, and returns the visible
// window. The input slice is never mutated.
func Run(orders []entity.Order, p Params) Result {
	matched := filter(orders, p.Status, p.Search)
	sortOrders(matched, p.Sort, p.Dir)

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > len(matched) {
		limit = len(matched)
	}

	return Result{
		Orders:       matched[:limit],
		TotalMatched: len(matched),
		Displayed:    limit,
	}
}

func filter(orders []entity.Order, status, search string) []entity.Order {
	status = strings.ToLower(strings.TrimSpace(status))
	search = strings.ToLower(strings.TrimSpace(search))

	matched := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != StatusAll && !strings.Contains(string(o.Status), status) {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		matched = append(matched, o)
	}
	return matched
}

// matchesSearch reports whether the lowercased needle appears in the order id
// or any item name.
func matchesSearch(o entity.Order, needle string) bool {
	if strings.Contains(strings.ToLower(o.ID), needle) {
		return true
	}
	for _, item := range o.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}
	return false
}

// sortOrders is a stable sort so orders with equal keys keep their relative
// position and the window stays deterministic.
func sortOrders(orders []entity.Order, key SortKey, dir SortDir) {
	desc := dir == Descending

	sort.SliceStable(orders, func(i, j int) bool {
		var less bool
		switch key {
		case SortByTotal:
			less = orders[i].Total < orders[j].Total
		case SortByStatus:
			less = orders[i].Status < orders[j].Status
		default:
			less = orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		if desc {
			return !less && !equalKey(orders[i], orders[j], key)
		}
		return less
	})
}

func equalKey(a, b entity.Order, key SortKey) bool {
	switch key {
	case SortByTotal:
		return a.Total == b.Total
	case SortByStatus:
		return a.Status == b.Status
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}
