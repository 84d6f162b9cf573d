package service

import "fmt"

// Page describes one page of a listing.
type Page struct {
	Number int
	Size   int
	Total  int
	Pages  int
}

// NewPage validates a 1-based page number against the listing size.
// Page 1 always exists, even for an empty listing.
func NewPage(number, size, total int) (Page, error) {
	if size <= 0 {
		size = 10
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 || number > pages {
		return Page{}, fmt.Errorf("page %d of %d: %w", number, pages, ErrNotFound)
	}
	return Page{Number: number, Size: size, Total: total, Pages: pages}, nil
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasNext() bool     { return p.Number < p.Pages }
func (p Page) Previous() int     { return p.Number - 1 }
func (p Page) Next() int         { return p.Number + 1 }
