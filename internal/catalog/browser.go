package catalog

// Browser holds a listing snapshot together with the active filter and sort
// key. Changing the snapshot, the filter or the sort key recomputes the results
// and resets pagination to the first page.
//
// A Browser is not safe for concurrent use.
type Browser struct {
	snapshot []Listing
	filter   Filter
	sort     SortKey
	results  []Listing
	pager    *Pager
}

// NewBrowser returns a browser over listings sorted by relevance with no
// filter.
func NewBrowser(listings []Listing, pageSize int) *Browser {
	b := &Browser{snapshot: listings, sort: SortRelevance, pager: NewPager(pageSize)}
	b.refresh()
	return b
}

func (b *Browser) refresh() {
	b.results = Apply(b.snapshot, b.filter, b.sort)
	b.pager.Reset(b.results)
}

// SetSnapshot replaces the listings.
func (b *Browser) SetSnapshot(listings []Listing) {
	b.snapshot = listings
	b.refresh()
}

// SetFilter replaces the active filter.
func (b *Browser) SetFilter(f Filter) {
	b.filter = f
	b.refresh()
}

// SetSort replaces the sort key.
func (b *Browser) SetSort(key SortKey) {
	b.sort = key
	b.refresh()
}

// Filter returns the active filter.
func (b *Browser) Filter() Filter { return b.filter }

// Sort returns the active sort key.
func (b *Browser) Sort() SortKey { return b.sort }

// Results returns every listing matching the filter, in sorted order.
func (b *Browser) Results() []Listing { return b.results }

// Visible returns the listings revealed so far.
func (b *Browser) Visible() []Listing { return b.pager.Visible() }

// LoadMore reveals and returns the next page.
func (b *Browser) LoadMore() []Listing { return b.pager.LoadMore() }

// HasMore reports whether another page exists.
func (b *Browser) HasMore() bool { return b.pager.HasMore() }

// Summary describes the visible range.
func (b *Browser) Summary() string { return b.pager.Summary() }
