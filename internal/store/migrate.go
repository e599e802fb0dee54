package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/tutordb/internal/jsonldb"
)

const metaFile = "_meta.json"

// migration is one structural step. apply must be idempotent: it can run again
// after a crash between applying the step and recording the new version.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, dir string) error
}

var migrations = []migration{
	{1, "create core collections", createCollections(
		CollectionUsers, CollectionCourses, CollectionReviews, CollectionSessions, CollectionMessages)},
	{2, "create transactions", createCollections(CollectionTransactions)},
	{3, "create mentor applications", createCollections(CollectionMentorApplications)},
	{4, "backfill application status", backfillApplicationStatus},
}

// SchemaVersion is the schema version this code reads and writes.
var SchemaVersion = migrations[len(migrations)-1].version

var creators = map[string]func(path string) error{
	CollectionUsers:              create[*User],
	CollectionCourses:            create[*Course],
	CollectionReviews:            create[*Review],
	CollectionSessions:           create[*Session],
	CollectionMessages:           create[*Message],
	CollectionTransactions:       create[*Transaction],
	CollectionMentorApplications: create[*MentorApplication],
}

func create[T jsonldb.Row[T]](path string) error {
	_, err := jsonldb.CreateTable[T](path)
	return err
}

func createCollections(names ...string) func(context.Context, string) error {
	return func(ctx context.Context, dir string) error {
		for _, name := range names {
			if err := creators[name](filepath.Join(dir, name+".jsonl")); err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
		}
		return nil
	}
}

func backfillApplicationStatus(ctx context.Context, dir string) error {
	table, err := jsonldb.NewTable[*MentorApplication](filepath.Join(dir, CollectionMentorApplications+".jsonl"))
	if err != nil {
		return err
	}
	var pending []*MentorApplication
	for a := range table.Iter() {
		if a.Status == "" {
			pending = append(pending, a)
		}
	}
	for _, a := range pending {
		a.Status = ApplicationPending
		if _, err := table.Update(a); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		slog.InfoContext(ctx, "Backfilled application status", "count", len(pending))
	}
	return nil
}

type meta struct {
	SchemaVersion int `json:"schema_version"`
}

func readVersion(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", metaFile, err)
	}
	if m.SchemaVersion < 0 {
		return 0, fmt.Errorf("invalid schema version %d", m.SchemaVersion)
	}
	return m.SchemaVersion, nil
}

func writeVersion(dir string, version int) error {
	data, err := json.MarshalIndent(meta{SchemaVersion: version}, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, metaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil { //nolint:gosec // G306: not secret
		return err
	}
	return os.Rename(tmp, path)
}

// migrate brings dir to SchemaVersion and returns the version found on disk.
func migrate(ctx context.Context, dir string) (int, error) {
	from, err := readVersion(dir)
	if err != nil {
		return 0, err
	}
	if from > SchemaVersion {
		return from, fmt.Errorf("schema version %d is newer than supported version %d", from, SchemaVersion)
	}
	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		if err := ctx.Err(); err != nil {
			return from, err
		}
		if err := m.apply(ctx, dir); err != nil {
			return from, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if err := writeVersion(dir, m.version); err != nil {
			return from, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.InfoContext(ctx, "Applied migration", "version", m.version, "name", m.name)
	}
	return from, nil
}
