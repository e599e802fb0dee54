// Package store is the local persistence layer of the marketplace.
//
// A [Store] is an explicit handle over one data directory holding seven
// collections, each a JSONL table with declared secondary indexes. [Open]
// migrates the directory to [SchemaVersion] before any collection is usable,
// and [Store.SeedIfEmpty] populates an empty store from a bootstrap fixture in
// a single all-or-nothing step.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Store is the handle over a data directory. It is safe for concurrent use.
// Only [Open] returns a usable Store; every operation on the zero value fails
// with ErrNotOpen.
type Store struct {
	dir         string
	state       *state
	seedMu      sync.Mutex
	diskVersion int

	users        *Collection[*User]
	courses      *Collection[*Course]
	reviews      *Collection[*Review]
	sessions     *Collection[*Session]
	messages     *Collection[*Message]
	transactions *Collection[*Transaction]
	applications *Collection[*MentorApplication]
}

// Open migrates dir to [SchemaVersion], loads every collection and builds its
// indexes. Any failure is returned as an [*OpenError].
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory is not secret
		return nil, &OpenError{Dir: dir, Err: err}
	}
	from, err := migrate(ctx, dir)
	if err != nil {
		return nil, &OpenError{Dir: dir, Err: err}
	}
	s := &Store{dir: dir, state: &state{}, diskVersion: from}

	var eg errgroup.Group
	eg.Go(func() (err error) {
		s.users, err = openCollection(s.state, dir, CollectionUsers, userIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.courses, err = openCollection(s.state, dir, CollectionCourses, courseIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.reviews, err = openCollection(s.state, dir, CollectionReviews, reviewIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.sessions, err = openCollection(s.state, dir, CollectionSessions, sessionIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.messages, err = openCollection(s.state, dir, CollectionMessages, messageIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.transactions, err = openCollection(s.state, dir, CollectionTransactions, transactionIndexes)
		return err
	})
	eg.Go(func() (err error) {
		s.applications, err = openCollection(s.state, dir, CollectionMentorApplications, applicationIndexes)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, &OpenError{Dir: dir, Err: err}
	}
	return s, nil
}

// Close releases the handle. Every later call fails with ErrNotOpen.
func (s *Store) Close() error {
	if s.state == nil {
		return ErrNotOpen
	}
	s.state.closed.Store(true)
	return nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// MigratedFrom returns the schema version found on disk before Open migrated
// it; 0 for a fresh directory.
func (s *Store) MigratedFrom() int {
	return s.diskVersion
}

// Users returns the users collection.
func (s *Store) Users() *Collection[*User] { return s.users }

// Courses returns the courses collection.
func (s *Store) Courses() *Collection[*Course] { return s.courses }

// Reviews returns the reviews collection.
func (s *Store) Reviews() *Collection[*Review] { return s.reviews }

// Sessions returns the sessions collection.
func (s *Store) Sessions() *Collection[*Session] { return s.sessions }

// Messages returns the messages collection.
func (s *Store) Messages() *Collection[*Message] { return s.messages }

// Transactions returns the transactions collection.
func (s *Store) Transactions() *Collection[*Transaction] { return s.transactions }

// MentorApplications returns the mentor applications collection.
func (s *Store) MentorApplications() *Collection[*MentorApplication] { return s.applications }

// Collections returns every collection in seeding order, or nil when the
// store was never opened.
func (s *Store) Collections() []AnyCollection {
	if s.state == nil {
		return nil
	}
	return []AnyCollection{s.users, s.courses, s.reviews, s.sessions, s.messages, s.transactions, s.applications}
}

// Collection returns the collection with the given name.
func (s *Store) Collection(name string) (AnyCollection, error) {
	if s.state == nil {
		return nil, ErrNotOpen
	}
	for _, c := range s.Collections() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown collection %q", name)
}
