package repository

const maxPageLimit = 100

// Pagination selects a page of results. Page is 1-based. A zero Limit returns
// every item.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// All requests every item in one page.
var All = Pagination{}

// Normalize clamps the values into their valid range.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		return Pagination{Page: 1}
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// Offset returns the number of items to skip.
func (p Pagination) Offset() int {
	p = p.Normalize()
	if p.Limit == 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) indexes of the page in a slice of n items.
func (p Pagination) Window(n int) (int, int) {
	p = p.Normalize()
	if p.Limit == 0 {
		return 0, n
	}
	start := min(p.Offset(), n)
	return start, min(start+p.Limit, n)
}

// Page is one page of results plus the total count across all pages.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage builds a Page, never returning nil Items.
func NewPage[T any](items []T, total int, p Pagination) Page[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}
