package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, content string) FixtureSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return FileFixture{Path: path}
}

// counts returns the number of records of every collection.
func counts(t *testing.T, s *Store) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, c := range s.Collections() {
		n, err := c.Count(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		out[c.Name()] = n
	}
	return out
}

func TestSeedIfEmpty(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := setupStore(t)
		src := FileFixture{Path: "testdata/fixture.json"}
		res, err := s.SeedIfEmpty(t.Context(), src)
		if err != nil {
			t.Fatal(err)
		}
		if res.Skipped {
			t.Error("first SeedIfEmpty() skipped")
		}
		want := map[string]int{
			CollectionUsers:              3,
			CollectionCourses:            4,
			CollectionReviews:            2,
			CollectionSessions:           2,
			CollectionMessages:           1,
			CollectionTransactions:       4,
			CollectionMentorApplications: 0,
		}
		for name, n := range want {
			if res.Counts[name] != n {
				t.Errorf("Counts[%s] = %d, want %d", name, res.Counts[name], n)
			}
		}
		if res.Total() != 16 {
			t.Errorf("Total() = %d, want 16", res.Total())
		}

		res, err = s.SeedIfEmpty(t.Context(), src)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Skipped {
			t.Error("second SeedIfEmpty() did not skip")
		}
		got := counts(t, s)
		for name, n := range want {
			if got[name] != n {
				t.Errorf("after second seed %s has %d records, want %d", name, got[name], n)
			}
		}
	})

	t.Run("missing collections", func(t *testing.T) {
		s := setupStore(t)
		src := writeFixture(t, `{"users":[{"id":"u1","email":"a@example.com"}]}`)
		res, err := s.SeedIfEmpty(t.Context(), src)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Counts) != 1 || res.Counts[CollectionUsers] != 1 {
			t.Errorf("Counts = %v, want only users", res.Counts)
		}
	})

	t.Run("atomic failure", func(t *testing.T) {
		tests := []struct {
			name    string
			fixture string
		}{
			{"duplicate email", `{
				"users":[{"id":"u1","email":"a@example.com"},{"id":"u2","email":"a@example.com"}],
				"courses":[{"id":"c1"}]}`},
			{"duplicate id in later collection", `{
				"users":[{"id":"u1"}],
				"courses":[{"id":"c1"}],
				"transactions":[{"id":"t1","amount":1},{"id":"t1","amount":2}]}`},
			{"duplicate application user", `{
				"users":[{"id":"u1"}],
				"mentorApplications":[{"id":"a1","user_id":"u1"},{"id":"a2","user_id":"u1"}]}`},
			{"invalid record", `{
				"users":[{"id":"u1"}],
				"sessions":[{"id":"s1","status":"lost"}]}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := setupStore(t)
				if _, err := s.SeedIfEmpty(t.Context(), writeFixture(t, tt.fixture)); err == nil {
					t.Fatal("SeedIfEmpty() succeeded, want error")
				}
				for name, n := range counts(t, s) {
					if n != 0 {
						t.Errorf("%s has %d records after failed seed, want 0", name, n)
					}
				}
				// The store stays usable and seedable.
				if _, err := s.SeedIfEmpty(t.Context(), FileFixture{Path: "testdata/fixture.json"}); err != nil {
					t.Errorf("retry SeedIfEmpty() = %v", err)
				}
			})
		}
		t.Run("constraint kind", func(t *testing.T) {
			s := setupStore(t)
			_, err := s.SeedIfEmpty(t.Context(), writeFixture(t, tests[0].fixture))
			if !errors.Is(err, ErrConstraintViolation) {
				t.Errorf("error = %v, want ErrConstraintViolation", err)
			}
		})
	})

	t.Run("fetch errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/db.json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"users":[{"id":"u1"}]}`))
			case "/bad.json":
				_, _ = w.Write([]byte(`{"users":`))
			case "/shape.json":
				_, _ = w.Write([]byte(`{"users":{"id":"u1"}}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		tests := []struct {
			name string
			src  FixtureSource
		}{
			{"not found", HTTPFixture{URL: srv.URL + "/missing.json"}},
			{"bad json", HTTPFixture{URL: srv.URL + "/bad.json"}},
			{"bad shape", HTTPFixture{URL: srv.URL + "/shape.json"}},
			{"missing file", FileFixture{Path: filepath.Join(t.TempDir(), "none.json")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := setupStore(t)
				_, err := s.SeedIfEmpty(t.Context(), tt.src)
				var fe *SeedFetchError
				if !errors.As(err, &fe) {
					t.Fatalf("SeedIfEmpty() error = %v, want *SeedFetchError", err)
				}
				if n, _ := s.Users().Count(t.Context()); n != 0 {
					t.Errorf("users = %d after failed fetch, want 0", n)
				}
				if _, err := s.Users().Insert(t.Context(), &User{ID: "manual"}); err != nil {
					t.Errorf("store not writable after failed fetch: %v", err)
				}
			})
		}

		t.Run("http ok", func(t *testing.T) {
			s := setupStore(t)
			res, err := s.SeedIfEmpty(t.Context(), HTTPFixture{URL: srv.URL + "/db.json", Client: srv.Client()})
			if err != nil {
				t.Fatal(err)
			}
			if res.Counts[CollectionUsers] != 1 {
				t.Errorf("Counts = %v", res.Counts)
			}
		})
	})

	t.Run("cancelled", func(t *testing.T) {
		s := setupStore(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := s.SeedIfEmpty(ctx, FileFixture{Path: "testdata/fixture.json"}); !errors.Is(err, context.Canceled) {
			t.Errorf("SeedIfEmpty() error = %v, want context.Canceled", err)
		}
		if n, _ := s.Users().Count(t.Context()); n != 0 {
			t.Errorf("users = %d after cancelled seed, want 0", n)
		}
	})
}

func TestParseFixtureSource(t *testing.T) {
	tests := []struct {
		in   string
		want FixtureSource
	}{
		{"https://example.com/db.json", HTTPFixture{URL: "https://example.com/db.json"}},
		{"http://localhost/db.json", HTTPFixture{URL: "http://localhost/db.json"}},
		{"file:///tmp/db.json", FileFixture{Path: "/tmp/db.json"}},
		{"data/db.json", FileFixture{Path: "data/db.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFixtureSource(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseFixtureSource(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
	if _, err := ParseFixtureSource(""); err == nil {
		t.Error("ParseFixtureSource(\"\") succeeded, want error")
	}
}
