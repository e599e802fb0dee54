package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maruel/tutordb/internal/catalog"
)

// settle is how long the store directory must stay quiet before a rerun.
const settle = 200 * time.Millisecond

// runQuery reopens the store and prints the first page of q's results.
func (a *app) runQuery(ctx context.Context, q *catalog.SavedQuery) error {
	st, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	ls, err := listings(ctx, st)
	if err != nil {
		return err
	}
	b := catalog.NewBrowser(ls, a.cfg.PageSize)
	b.SetFilter(q.Filter)
	b.SetSort(q.Sort)
	fmt.Fprintf(a.out, "\n%s\n", time.Now().Format(time.TimeOnly))
	if err := printListings(a.out, b.Visible()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, b.Summary())
	return nil
}

// relevant reports whether a change to name can alter query results.
func relevant(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".jsonl") || base == "_meta.json"
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("watch")
	queryPath := fs.String("query", "", "YAML saved query; required")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *queryPath == "" {
		return errors.New("-query is required")
	}
	q, err := catalog.LoadQuery(*queryPath)
	if err != nil {
		return err
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	_ = st.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(a.storeDir()); err != nil {
		return err
	}
	if err := a.runQuery(ctx, q); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Watching store", "dir", a.storeDir())

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if relevant(event.Name) && !event.Has(fsnotify.Chmod) {
				slog.DebugContext(ctx, "Store changed", "file", event.Name, "op", event.Op.String())
				timer.Reset(settle)
			}
		case <-timer.C:
			if err := a.runQuery(ctx, q); err != nil {
				slog.WarnContext(ctx, "Failed to rerun query", "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching store", "err", err)
		}
	}
}
