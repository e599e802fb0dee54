package catalog

import "fmt"

// DefaultPageSize is the number of listings per page.
const DefaultPageSize = 6

// Pager accumulates pages of a result list. Loading more appends the next page
// to what is already visible without reordering it.
type Pager struct {
	size    int
	results []Listing
	shown   int
}

// NewPager returns a pager with the given page size; a non-positive size uses
// DefaultPageSize.
func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{size: size}
}

// Reset replaces the results and shows the first page only.
func (p *Pager) Reset(results []Listing) {
	p.results = results
	p.shown = min(p.size, len(results))
}

// LoadMore reveals the next page and returns it. It returns nil when
// everything is already visible.
func (p *Pager) LoadMore() []Listing {
	if !p.HasMore() {
		return nil
	}
	start := p.shown
	p.shown = min(p.shown+p.size, len(p.results))
	return p.results[start:p.shown:p.shown]
}

// Visible returns every listing revealed so far.
func (p *Pager) Visible() []Listing {
	return p.results[:p.shown:p.shown]
}

// HasMore reports whether another page exists.
func (p *Pager) HasMore() bool {
	return p.shown < len(p.results)
}

// Page returns the zero-based index of the last revealed page.
func (p *Pager) Page() int {
	if p.shown == 0 {
		return 0
	}
	return (p.shown - 1) / p.size
}

// Total returns the number of results.
func (p *Pager) Total() int {
	return len(p.results)
}

// Summary describes the visible range, e.g. "Showing 6 of 14 courses".
func (p *Pager) Summary() string {
	return fmt.Sprintf("Showing %d of %d courses", p.shown, len(p.results))
}
