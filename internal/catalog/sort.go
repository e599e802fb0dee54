package catalog

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey selects the order of listings.
type SortKey string

// Sort keys.
const (
	SortRelevance SortKey = "relevance"
	SortRating    SortKey = "rating"
	SortPriceLow  SortKey = "priceLow"
	SortPriceHigh SortKey = "priceHigh"
	SortNewest    SortKey = "newest"
	SortPopular   SortKey = "popular"
)

// SortKeys lists every supported key.
var SortKeys = []SortKey{SortRelevance, SortRating, SortPriceLow, SortPriceHigh, SortNewest, SortPopular}

// ParseSortKey returns the key named s, case-insensitively. Unknown names
// return SortRelevance and false.
func ParseSortKey(s string) (SortKey, bool) {
	if strings.EqualFold(s, "most-popular") {
		return SortPopular, true
	}
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return SortRelevance, false
}

// SortListings orders listings in place by key. The sort is stable, so ties
// and SortRelevance keep the input order. Unknown keys leave the order alone.
func SortListings(listings []Listing, key SortKey) {
	var less func(a, b *Listing) int
	switch key {
	case SortRating:
		less = func(a, b *Listing) int { return cmp.Compare(b.AverageRating, a.AverageRating) }
	case SortPriceLow:
		less = func(a, b *Listing) int { return cmp.Compare(a.PricePerSession, b.PricePerSession) }
	case SortPriceHigh:
		less = func(a, b *Listing) int { return cmp.Compare(b.PricePerSession, a.PricePerSession) }
	case SortNewest:
		less = func(a, b *Listing) int {
			// Undated courses sort last.
			az, bz := a.CreatedAt.IsZero(), b.CreatedAt.IsZero()
			switch {
			case az && bz:
				return 0
			case az:
				return 1
			case bz:
				return -1
			}
			return b.CreatedAt.Time().Compare(a.CreatedAt.Time())
		}
	case SortPopular:
		less = func(a, b *Listing) int { return cmp.Compare(b.TotalReviews, a.TotalReviews) }
	default:
		return
	}
	slices.SortStableFunc(listings, func(a, b Listing) int { return less(&a, &b) })
}

// Apply filters listings with f then sorts the survivors by key. The input is
// not modified.
func Apply(listings []Listing, f Filter, key SortKey) []Listing {
	out := FilterListings(listings, f)
	SortListings(out, key)
	return out
}
