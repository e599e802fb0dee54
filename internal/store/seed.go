package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
)

// FixtureSource provides the bootstrap fixture: a JSON object mapping
// collection names to arrays of records.
type FixtureSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileFixture reads the fixture from a local file.
type FileFixture struct {
	Path string
}

// Open implements FixtureSource.
func (f FileFixture) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f FileFixture) String() string {
	return f.Path
}

// HTTPFixture fetches the fixture with a GET request.
type HTTPFixture struct {
	URL    string
	Client *http.Client // http.DefaultClient when nil.
}

// Open implements FixtureSource. A non-2xx status is an error.
func (h HTTPFixture) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (h HTTPFixture) String() string {
	return h.URL
}

// ParseFixtureSource returns an HTTPFixture for http(s) URLs and a FileFixture
// for file:// URLs and plain paths.
func ParseFixtureSource(s string) (FixtureSource, error) {
	switch {
	case s == "":
		return nil, errors.New("fixture source is empty")
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return HTTPFixture{URL: s}, nil
	case strings.HasPrefix(s, "file://"):
		return FileFixture{Path: strings.TrimPrefix(s, "file://")}, nil
	default:
		return FileFixture{Path: s}, nil
	}
}

// SeedResult describes the outcome of [Store.SeedIfEmpty].
type SeedResult struct {
	// Skipped is true when the users collection already had records.
	Skipped bool
	// Counts is the number of records added per collection.
	Counts map[string]int
}

// Total returns the number of records added.
func (r SeedResult) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

func fetchFixture(ctx context.Context, src FixtureSource) (map[string]json.RawMessage, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &SeedFetchError{Source: src.String(), Err: err}
	}
	defer func() {
		_ = rc.Close()
	}()
	var fixture map[string]json.RawMessage
	if err := json.NewDecoder(rc).Decode(&fixture); err != nil {
		return nil, &SeedFetchError{Source: src.String(), Err: fmt.Errorf("failed to decode: %w", err)}
	}
	return fixture, nil
}

// SeedIfEmpty populates the store from src when the users collection is empty
// and does nothing otherwise.
//
// Every record of every collection is checked before anything is written, so
// a fixture violating a constraint leaves the store empty. Fixture keys that
// name no collection, and collections absent from the fixture, are logged and
// skipped. Fetch and decode failures are returned as a [*SeedFetchError].
// ctx is honoured until the first write.
func (s *Store) SeedIfEmpty(ctx context.Context, src FixtureSource) (SeedResult, error) {
	if err := s.state.check(ctx); err != nil {
		return SeedResult{}, err
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if n, err := s.users.Count(ctx); err != nil {
		return SeedResult{}, err
	} else if n > 0 {
		slog.DebugContext(ctx, "Store already seeded", "users", n)
		return SeedResult{Skipped: true}, nil
	}

	fixture, err := fetchFixture(ctx, src)
	if err != nil {
		return SeedResult{}, err
	}
	collections := s.Collections()
	known := make(map[string]bool, len(collections))
	for _, c := range collections {
		known[c.Name()] = true
	}
	for _, name := range slices.Sorted(maps.Keys(fixture)) {
		if !known[name] {
			slog.WarnContext(ctx, "Unknown collection in fixture", "collection", name)
		}
	}

	var batches []*seedBatch
	for _, c := range collections {
		raw, ok := fixture[c.Name()]
		if !ok {
			slog.InfoContext(ctx, "Collection missing from fixture", "collection", c.Name())
			continue
		}
		b, err := c.stage(raw)
		if err != nil {
			return SeedResult{}, &SeedFetchError{Source: src.String(), Err: fmt.Errorf("collection %s: %w", c.Name(), err)}
		}
		batches = append(batches, b)
	}
	for _, b := range batches {
		if err := b.check(); err != nil {
			return SeedResult{}, fmt.Errorf("seed rejected: %w", err)
		}
	}
	if err := s.state.check(ctx); err != nil {
		return SeedResult{}, err
	}

	res := SeedResult{Counts: make(map[string]int, len(batches))}
	for i, b := range batches {
		if err := b.commit(); err != nil {
			errs := []error{fmt.Errorf("seed aborted: %w", err)}
			for j := i - 1; j >= 0; j-- {
				if rerr := batches[j].rollback(); rerr != nil {
					errs = append(errs, fmt.Errorf("rollback %s: %w", batches[j].collection, rerr))
				}
			}
			return SeedResult{}, errors.Join(errs...)
		}
		res.Counts[b.collection] = b.rows
	}
	slog.InfoContext(ctx, "Seeded store", "source", src.String(), "records", res.Total())
	return res, nil
}
