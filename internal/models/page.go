package models

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items       []T
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

// NewPage computes the page bounds for total rows split into pages of perPage.
func NewPage[T any](items []T, total, perPage, currentPage int) Page[T] {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: currentPage,
		LastPage:    lastPage,
	}
}

// NextPage returns the following page number, or nil on the last page.
func (p Page[T]) NextPage() *int {
	if p.CurrentPage >= p.LastPage {
		return nil
	}
	n := p.CurrentPage + 1
	return &n
}

// PrevPage returns the preceding page number, or nil on the first page.
func (p Page[T]) PrevPage() *int {
	if p.CurrentPage <= 1 {
		return nil
	}
	n := p.CurrentPage - 1
	if n > p.LastPage {
		n = p.LastPage
	}
	return &n
}
