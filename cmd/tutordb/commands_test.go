package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/maruel/tutordb/internal/config"
	"github.com/maruel/tutordb/internal/export"
	"github.com/maruel/tutordb/internal/store"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	fixture, err := filepath.Abs(filepath.Join("..", "..", "internal", "store", "testdata", "fixture.json"))
	if err != nil {
		t.Fatal(err)
	}
	return &app{dataDir: dir, fixture: fixture, cfg: cfg, out: &bytes.Buffer{}}
}

// output returns what the last commands printed and clears it.
func output(a *app) string {
	b := a.out.(*bytes.Buffer)
	s := b.String()
	b.Reset()
	return s
}

var columnSep = regexp.MustCompile(`\s{2,}`)

// table splits tabwriter output into rows of cells. Lines that are not part
// of the table, such as the summary, are returned separately.
func table(out string) (rows [][]string, rest []string) {
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		cells := columnSep.Split(strings.TrimSpace(line), -1)
		if len(cells) > 1 {
			rows = append(rows, cells)
		} else if line != "" {
			rest = append(rest, line)
		}
	}
	return rows, rest
}

func TestCommands(t *testing.T) {
	ctx := t.Context()
	a := testApp(t)
	if err := cmdSeed(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	// Seeding twice is a no-op.
	if err := cmdSeed(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	st, err := a.open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n, err := st.Courses().Count(ctx)
	_ = st.Close()
	if err != nil || n == 0 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
	output(a)

	query := filepath.Join(t.TempDir(), "q.yaml")
	if err := os.WriteFile(query, []byte("filter:\n  price_range: [0, 10000]\nsort: rating\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Run("search", func(t *testing.T) {
		if err := cmdSearch(ctx, a, []string{"-query", query, "-pages", "2"}); err != nil {
			t.Fatal(err)
		}
		rows, rest := table(output(a))
		if len(rows) != 5 || rows[0][0] != "ID" {
			t.Fatalf("rows = %q", rows)
		}
		got := []string{}
		for _, row := range rows[1:] {
			got = append(got, row[0])
		}
		if want := []string{"c3", "c1", "c2", "c4"}; !slices.Equal(got, want) {
			t.Errorf("ids = %v, want %v", got, want)
		}
		if want := []string{"c3", "System Design Interviews", "Vikram Singh", "900", "4.9", "5"}; !slices.Equal(rows[1], want) {
			t.Errorf("first row = %q, want %q", rows[1], want)
		}
		if want := []string{"Showing 4 of 4 courses"}; !slices.Equal(rest, want) {
			t.Errorf("summary = %q, want %q", rest, want)
		}
	})
	t.Run("search without match", func(t *testing.T) {
		if err := cmdSearch(ctx, a, []string{"-sort", "most-popular", "-search", "zzz"}); err != nil {
			t.Fatal(err)
		}
		if got := output(a); got != "No courses match these filters\n" {
			t.Errorf("output = %q", got)
		}
	})
	t.Run("transactions", func(t *testing.T) {
		tests := []struct {
			typ  string
			want [][]string
		}{
			{"all", [][]string{
				{"2024-02-01", "session payment", "-100", "450", "Go session"},
				{"2024-02-01", "bonus", "+50", "550", "Referral"},
				{"2024-01-05", "purchase", "+500", "500", "Coin pack"},
			}},
			// Hidden transactions still count in the balances shown.
			{"purchase", [][]string{
				{"2024-01-05", "purchase", "+500", "500", "Coin pack"},
			}},
		}
		for _, tt := range tests {
			t.Run(tt.typ, func(t *testing.T) {
				if err := cmdTransactions(ctx, a, []string{"-user", "u1", "-type", tt.typ}); err != nil {
					t.Fatal(err)
				}
				rows, rest := table(output(a))
				if len(rows) == 0 || rows[0][0] != "DATE" {
					t.Fatalf("rows = %q", rows)
				}
				if !slices.EqualFunc(rows[1:], tt.want, slices.Equal) {
					t.Errorf("rows = %q, want %q", rows[1:], tt.want)
				}
				if want := []string{"Balance: 450 (low)"}; !slices.Equal(rest, want) {
					t.Errorf("footer = %q, want %q", rest, want)
				}
			})
		}
	})

	tests := []struct {
		name string
		run  func() error
	}{
		{"favorite", func() error { return cmdFavorite(ctx, a, []string{"-user", "u1", "-course", "c1"}) }},
		{"register", func() error {
			return cmdRegister(ctx, a, []string{"-name", "Noor Khan", "-email", "noor@example.com", "-username", "noor", "-password", "correct horse"})
		}},
		{"token", func() error { return cmdToken(ctx, a, []string{"-email", "noor@example.com", "-password", "correct horse"}) }},
		{"export", func() error { return cmdExport(ctx, a, nil) }},
	}
	for _, tt := range tests {
		if err := tt.run(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(a.dataDir, "export.db")); err != nil {
		t.Errorf("export.db: %v", err)
	}

	errs := []struct {
		name string
		run  func() error
	}{
		{"bad sort", func() error { return cmdSearch(ctx, a, []string{"-sort", "cheapest"}) }},
		{"missing user", func() error { return cmdTransactions(ctx, a, nil) }},
		{"unknown user", func() error { return cmdTransactions(ctx, a, []string{"-user", "ghost"}) }},
		{"wrong password", func() error { return cmdToken(ctx, a, []string{"-email", "noor@example.com", "-password", "nope"}) }},
		{"watch without query", func() error { return cmdWatch(ctx, a, nil) }},
	}
	for _, tt := range errs {
		if err := tt.run(); err == nil {
			t.Errorf("%s: succeeded, want error", tt.name)
		}
	}
}

func TestUnreachableFixture(t *testing.T) {
	ctx := t.Context()
	a := testApp(t)
	a.fixture = filepath.Join(t.TempDir(), "missing.json")
	if err := cmdSeed(ctx, a, nil); err == nil {
		t.Error("cmdSeed() with a missing fixture succeeded")
	}
	if err := cmdSearch(ctx, a, nil); err != nil {
		t.Fatalf("cmdSearch() = %v", err)
	}
	if got := output(a); got != "No courses match these filters\n" {
		t.Errorf("cmdSearch() output = %q", got)
	}
	err := cmdRegister(ctx, a, []string{"-name", "Noor Khan", "-email", "noor@example.com", "-username", "noor", "-password", "correct horse"})
	if err != nil {
		t.Fatalf("cmdRegister() = %v", err)
	}
	st, err := a.open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if n, err := st.Users().Count(ctx); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1", n, err)
	}
}

func TestSeedWithoutFixture(t *testing.T) {
	a := testApp(t)
	a.fixture = ""
	if err := cmdSeed(t.Context(), a, nil); err == nil {
		t.Error("cmdSeed() without fixture succeeded")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"/data/db/courses.jsonl", true},
		{"/data/db/_meta.json", true},
		{"/data/db/courses.jsonl.123.tmp", false},
		{"/data/config.json", false},
	}
	for _, tt := range tests {
		if got := relevant(tt.name); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

var _ export.Source = (*store.Store)(nil)
