package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SavedQuery is a filter and sort key stored as YAML:
//
//	filter:
//	  languages: [en, hi]
//	  price_range: [0, 600]
//	sort: rating
type SavedQuery struct {
	Filter Filter  `yaml:"filter,omitempty"`
	Sort   SortKey `yaml:"sort,omitempty"`
}

// Validate checks that the sort key is known.
func (q *SavedQuery) Validate() error {
	if q.Sort == "" {
		q.Sort = SortRelevance
		return nil
	}
	k, ok := ParseSortKey(string(q.Sort))
	if !ok {
		return fmt.Errorf("unknown sort key %q", q.Sort)
	}
	q.Sort = k
	return nil
}

// Run applies the query to listings.
func (q *SavedQuery) Run(listings []Listing) []Listing {
	return Apply(listings, q.Filter, q.Sort)
}

// LoadQuery reads and parses a saved query from a file.
// The path is provided by the CLI user, so file inclusion is expected.
func LoadQuery(path string) (*SavedQuery, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified query path
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	return ParseQuery(data)
}

// ParseQuery parses a saved query. Unknown fields are rejected so that a typo
// does not silently widen the query.
func ParseQuery(data []byte) (*SavedQuery, error) {
	var q SavedQuery
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return &q, nil
}

// Marshal encodes the query as YAML.
func (q *SavedQuery) Marshal() ([]byte, error) {
	return yaml.Marshal(q)
}
