// Package export writes a snapshot of the store to a SQLite database.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	"github.com/maruel/tutordb/internal/jsonldb"
	"github.com/maruel/tutordb/internal/store"
)

// omitted columns are never exported.
var omitted = map[string]bool{"password_hash": true}

// Source lists the collections to export. *store.Store implements it.
type Source interface {
	Collections() []store.AnyCollection
}

// SQLite replaces the database at path with one table per collection and
// returns the number of rows written per collection.
//
// Column types follow the SQLite affinity of the collection columns; nested
// values are stored as JSON text.
func SQLite(ctx context.Context, src Source, path string) (map[string]int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, c := range src.Collections() {
		n, err := exportCollection(ctx, db, c)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", c.Name(), err)
		}
		counts[c.Name()] = n
		slog.DebugContext(ctx, "Exported collection", "collection", c.Name(), "rows", n)
	}
	return counts, db.Close()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func exportCollection(ctx context.Context, db *sql.DB, c store.AnyCollection) (int, error) {
	var cols []jsonldb.Column
	for _, col := range c.Columns() {
		if !omitted[col.Name] {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return 0, errors.New("no columns")
	}
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		names[i] = quote(col.Name)
		marks[i] = "?"
		defs[i] = names[i] + " " + jsonldb.ColumnTypeAffinity(col.Type).SQLType()
		if col.Name == jsonldb.PrimaryKey {
			defs[i] += " PRIMARY KEY"
		}
	}
	records, err := c.Records(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	table := quote(c.Name())
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	args := make([]any, len(cols))
	for _, rec := range records {
		row := jsonldb.CoerceData(rec, cols)
		for i, col := range cols {
			args[i] = row[col.Name]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}
