package query

// Window tracks incremental "load more" pagination: a visible prefix that
// widens by PageSize each load. Callers must Reset whenever filter or sort
// parameters change so no stale window carries across a new view.
type Window struct {
	pageSize  int
	displayed int
}

// NewWindow creates a window showing one page.
func NewWindow(pageSize int) *Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Window{pageSize: pageSize, displayed: pageSize}
}

// Limit returns how many orders are currently visible.
func (w *Window) Limit() int {
	return w.displayed
}

// LoadMore widens the window by one page, capped at total.
func (w *Window) LoadMore(total int) {
	w.displayed += w.pageSize
	if w.displayed > total {
		w.displayed = total
	}
	if w.displayed < w.pageSize {
		w.displayed = w.pageSize
	}
}

// Reset shrinks the window back to a single page.
func (w *Window) Reset() {
	w.displayed = w.pageSize
}

// SetPageSize changes the page size and resets the window.
func (w *Window) SetPageSize(pageSize int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	w.pageSize = pageSize
	w.Reset()
}
