package export

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/maruel/tutordb/internal/store"
)

func TestSQLite(t *testing.T) {
	ctx := t.Context()
	st, err := store.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.Users().Insert(ctx, &store.User{
		ID: "u1", Email: "a@example.com", Favorites: []string{"c1", "c2"}, ExcelCoinBalance: 250, PasswordHash: "secret",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Courses().Insert(ctx, &store.Course{
		ID: "c1", MentorID: "u1", PricePerSession: 499.5, Availability: &store.Availability{Today: true},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MentorApplications().Insert(ctx, &store.MentorApplication{ID: "a1", UserID: "u1", NDAAgree: true}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out", "snapshot.db")
	for range 2 {
		counts, err := SQLite(ctx, st, path)
		if err != nil {
			t.Fatal(err)
		}
		if counts[store.CollectionUsers] != 1 || counts[store.CollectionCourses] != 1 || counts[store.CollectionReviews] != 0 || len(counts) != 7 {
			t.Errorf("SQLite() = %v", counts)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var favorites string
	var balance int64
	if err := db.QueryRowContext(ctx, `SELECT favorites, excel_coin_balance FROM users WHERE id = 'u1'`).Scan(&favorites, &balance); err != nil {
		t.Fatal(err)
	}
	if favorites != `["c1","c2"]` || balance != 250 {
		t.Errorf("users row = %q, %d", favorites, balance)
	}
	var price float64
	var availability string
	if err := db.QueryRowContext(ctx, `SELECT price_per_session, availability FROM courses WHERE id = 'c1'`).Scan(&price, &availability); err != nil {
		t.Fatal(err)
	}
	if price != 499.5 || availability == "" {
		t.Errorf("courses row = %v, %q", price, availability)
	}
	var nda int64
	if err := db.QueryRowContext(ctx, `SELECT ndaAgree FROM mentorApplications WHERE id = 'a1'`).Scan(&nda); err != nil {
		t.Fatal(err)
	}
	if nda != 1 {
		t.Errorf("ndaAgree = %d, want 1", nda)
	}
	if _, err := db.ExecContext(ctx, `SELECT password_hash FROM users`); err == nil {
		t.Error("password_hash was exported")
	}
}
