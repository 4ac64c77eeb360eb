package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	// PageSize is the fixed number of rows on a table page.
	PageSize    = 10
	MaxPageSize = 100
	// WindowSize is how many page numbers the paginator shows at once.
	WindowSize = 5
)

// Params holds 1-based page parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts page parameters from the echo context.
func FromContext(c echo.Context) Params {
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = PageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	return Params{Page: page, PageSize: size}
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	HasMore    bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, page, size int) *Response {
	return &Response{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(total, size),
		HasMore:    page*size < total,
	}
}

// TotalPages returns ceil(total/size); an empty set has zero pages.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Slice returns items[(page-1)*size : page*size] clamped to len(items).
// Pages outside the data yield an empty slice, never a panic.
func Slice[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Pager is the current page over a result set of TotalPages pages.
type Pager struct {
	Page       int
	TotalPages int
}

// NewPager starts on page 1 of a set with total items.
func NewPager(total, size int) Pager {
	return Pager{Page: 1, TotalPages: TotalPages(total, size)}
}

// Goto moves to page n. Pages outside [1, TotalPages] are rejected and the
// pager is returned unchanged.
func (p Pager) Goto(n int) (Pager, bool) {
	if n < 1 || n > p.TotalPages {
		return p, false
	}
	p.Page = n
	return p, true
}

// HasNext returns true if there are pages after the current one.
func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrevious returns true if there are pages before the current one.
func (p Pager) HasPrevious() bool {
	return p.Page > 1
}

// Window returns up to max consecutive page numbers around current, shifted
// so the window never runs past either end.
func Window(current, totalPages, max int) []int {
	if totalPages <= 0 || max <= 0 {
		return nil
	}
	start, end := 1, totalPages
	if totalPages > max {
		before := max / 2
		after := (max+1)/2 - 1
		switch {
		case current <= before:
			start, end = 1, max
		case current+after >= totalPages:
			start, end = totalPages-max+1, totalPages
		default:
			start, end = current-before, current+after
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
