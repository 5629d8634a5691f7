package dashboard

import "fmt"

// DefaultPerPage is the dashboard's product list page size.
const DefaultPerPage = 10

// Page describes one window over a list of Total items.
// Number is 1-based; Start and End are 1-based inclusive positions and are
// both zero for an empty list.
type Page struct {
	Number  int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
	Start   int `json:"start"`
	End     int `json:"end"`
}

// Paginate clamps number into [1, Pages] and computes the window.
func Paginate(total, number, perPage int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}

	p := Page{Number: number, PerPage: perPage, Total: total, Pages: pages}
	if total > 0 {
		p.Start = (number-1)*perPage + 1
		p.End = min(number*perPage, total)
	}
	return p
}

// Label renders "Showing a - b of n".
func (p Page) Label() string {
	return fmt.Sprintf("Showing %d - %d of %d", p.Start, p.End, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.Pages }

// Prev returns the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the next page number.
func (p Page) Next() int { return p.Number + 1 }

// Window returns the slice of items covered by p.
func Window[T any](items []T, p Page) []T {
	if p.Start == 0 {
		return nil
	}
	return items[p.Start-1 : p.End]
}
