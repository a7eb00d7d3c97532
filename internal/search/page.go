package search

import "strconv"

// Window is the resolved position of a page inside a result set.
type Window struct {
	Number int
	Size   int
	Total  int
	Pages  int
}

// Offset returns the number of rows to skip.
func (w Window) Offset() int {
	return (w.Number - 1) * w.Size
}

// Paginate clamps the requested page into [1, pages]. An empty result set
// still has one (empty) page.
func Paginate(total, requested, size int) Window {
	if size <= 0 {
		size = 1
	}
	if total < 0 {
		total = 0
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	number := requested
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	return Window{Number: number, Size: size, Total: total, Pages: pages}
}

// ParsePageNumber reads a page query value; anything non-numeric is page 1.
func ParsePageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// Page is one slice of a paginated result.
type Page[T any] struct {
	Items       []T
	Number      int
	Size        int
	Total       int
	Pages       int
	HasNext     bool
	HasPrevious bool
}

// NewPage pairs items with the window they were loaded for.
func NewPage[T any](items []T, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Number:      w.Number,
		Size:        w.Size,
		Total:       w.Total,
		Pages:       w.Pages,
		HasNext:     w.Number < w.Pages,
		HasPrevious: w.Number > 1,
	}
}
