package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/tutordb/internal/jsonldb"
)

// state is shared by a store and its collections.
type state struct {
	closed atomic.Bool
}

// check fails once the store is closed or ctx is done. A nil state belongs
// to a store that was never opened.
func (s *state) check(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return ErrNotOpen
	}
	return ctx.Err()
}

// indexDef declares a secondary index. keys returns every key of a row; a
// single-valued field returns one key, a multi-valued field one per element.
// lookup normalizes a query value to a key; nil means [IndexKey].
type indexDef[T any] struct {
	name   string
	unique bool
	keys   func(T) []string
	lookup func(any) string
}

func field[T any](name string, f func(T) string) indexDef[T] {
	return indexDef[T]{name: name, keys: func(row T) []string { return []string{f(row)} }}
}

// timeField indexes a timestamp. Lookups accept a Timestamp, a time.Time or
// any string layout the fixture accepts.
func timeField[T any](name string, f func(T) Timestamp) indexDef[T] {
	d := field(name, func(row T) string { return f(row).String() })
	d.lookup = timestampKey
	return d
}

func timestampKey(v any) string {
	if s, ok := v.(string); ok {
		if ts, err := ParseTimestamp(s); err == nil {
			return ts.String()
		}
	}
	return IndexKey(v)
}

func uniqueField[T any](name string, f func(T) string) indexDef[T] {
	d := field(name, f)
	d.unique = true
	return d
}

func multiField[T any](name string, f func(T) []string) indexDef[T] {
	return indexDef[T]{name: name, keys: f}
}

// IndexKey normalizes an index lookup value to the key stored in indexes.
// Numbers use their shortest decimal form and times use RFC 3339 in UTC.
func IndexKey(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case Timestamp:
		return v.String()
	case time.Time:
		return Timestamp(v).String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Collection is a typed handle on one named collection of the store.
type Collection[T jsonldb.Row[T]] struct {
	name   string
	state  *state
	table  *jsonldb.Table[T]
	fields map[string]struct{}
	unique map[string]*jsonldb.UniqueIndex[string, T]
	multi  map[string]*jsonldb.MultiIndex[string, T]
	lookup map[string]func(any) string

	// mu serializes read-modify-write sequences on this collection.
	mu sync.Mutex
}

func openCollection[T jsonldb.Row[T]](st *state, dir, name string, defs []indexDef[T]) (*Collection[T], error) {
	table, err := jsonldb.NewTable[T](filepath.Join(dir, name+".jsonl"))
	if err != nil {
		return nil, err
	}
	c := &Collection[T]{
		name:   name,
		state:  st,
		table:  table,
		fields: map[string]struct{}{},
		unique: map[string]*jsonldb.UniqueIndex[string, T]{},
		multi:  map[string]*jsonldb.MultiIndex[string, T]{},
		lookup: map[string]func(any) string{},
	}
	for _, col := range table.Columns() {
		c.fields[col.Name] = struct{}{}
	}
	for _, d := range defs {
		if d.lookup != nil {
			c.lookup[d.name] = d.lookup
		}
		if d.unique {
			keys := d.keys
			idx, err := jsonldb.NewUniqueIndex(table, d.name, func(row T) string {
				if k := keys(row); len(k) > 0 {
					return k[0]
				}
				return ""
			})
			if err != nil {
				return nil, fmt.Errorf("%s: index %s: %w", name, d.name, err)
			}
			c.unique[d.name] = idx
			continue
		}
		c.multi[d.name] = jsonldb.NewMultiIndex(table, d.name, d.keys)
	}
	return c, nil
}

// check fails when c belongs to a closed or never opened store.
func (c *Collection[T]) check(ctx context.Context) error {
	if c == nil {
		return ErrNotOpen
	}
	return c.state.check(ctx)
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Indexes returns the declared index names, sorted.
func (c *Collection[T]) Indexes() []string {
	names := make([]string, 0, len(c.unique)+len(c.multi))
	for n := range c.unique {
		names = append(names, n)
	}
	for n := range c.multi {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Columns returns the JSON columns of the collection's record type.
func (c *Collection[T]) Columns() []jsonldb.Column {
	return c.table.Columns()
}

// wrap converts table errors into store error kinds.
func (c *Collection[T]) wrap(err error) error {
	var ce *jsonldb.ConflictError
	switch {
	case errors.As(err, &ce):
		return &ConstraintError{Collection: c.name, Index: ce.Index, Key: ce.Key, Err: err}
	case errors.Is(err, jsonldb.ErrInvalidRow):
		return fmt.Errorf("%s: %w: %w", c.name, ErrInvalidRecord, err)
	default:
		return fmt.Errorf("%s: %w", c.name, err)
	}
}

func isZero[T any](row T) bool {
	var zero T
	return any(row) == any(zero)
}

// Insert adds rec. It fails with a [*ConstraintError] when the primary key or a
// unique index value is already taken.
func (c *Collection[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := c.check(ctx); err != nil {
		return zero, err
	}
	if isZero(rec) {
		return zero, fmt.Errorf("%s: %w: nil record", c.name, ErrInvalidRecord)
	}
	if err := rec.Validate(); err != nil {
		return zero, fmt.Errorf("%s: %w: %w", c.name, ErrInvalidRecord, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.table.Append(rec); err != nil {
		return zero, c.wrap(err)
	}
	return rec.Clone(), nil
}

// Get returns the record with the given key. An absent key returns the zero
// value and no error.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	if err := c.check(ctx); err != nil {
		var zero T
		return zero, err
	}
	return c.table.Get(key), nil
}

// All returns every record in stored order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	out := make([]T, 0, c.table.Len())
	for row := range c.table.Iter() {
		out = append(out, row)
	}
	return out, nil
}

// Count returns the number of records.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	return c.table.Len(), nil
}

// Update applies p to the record with the given key and returns the merged
// record. It fails with ErrNotFound when the key is absent.
func (c *Collection[T]) Update(ctx context.Context, key string, p Patch) (T, error) {
	var zero T
	if err := c.check(ctx); err != nil {
		return zero, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.table.Get(key)
	if isZero(cur) {
		return zero, fmt.Errorf("%s %q: %w", c.name, key, ErrNotFound)
	}
	merged, err := applyPatch(cur, p, c.fields)
	if err != nil {
		return zero, fmt.Errorf("%s %q: %w", c.name, key, err)
	}
	if err := merged.Validate(); err != nil {
		return zero, fmt.Errorf("%s %q: %w: %w", c.name, key, ErrInvalidRecord, err)
	}
	if _, err := c.table.Update(merged); err != nil {
		return zero, c.wrap(err)
	}
	return merged.Clone(), nil
}

// Delete removes the record with the given key. Deleting an absent key
// succeeds.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.table.Delete(key); err != nil && !errors.Is(err, jsonldb.ErrNotFound) {
		return c.wrap(err)
	}
	return nil
}

// QueryByIndex returns the records whose index key equals value, in stored
// order. For a multi-valued index a record matches when any of its values
// equals value. value is normalized with [IndexKey], except on timestamp
// indexes where a string is parsed as a timestamp first.
func (c *Collection[T]) QueryByIndex(ctx context.Context, index string, value any) ([]T, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	key := IndexKey(value)
	if f, ok := c.lookup[index]; ok {
		key = f(value)
	}
	if idx, ok := c.unique[index]; ok {
		if row := idx.Get(key); !isZero(row) {
			return []T{row}, nil
		}
		return []T{}, nil
	}
	idx, ok := c.multi[index]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", c.name, index, ErrUnknownIndex)
	}
	out := []T{}
	for row := range idx.Iter(key) {
		out = append(out, row)
	}
	return out, nil
}

// Records returns every record decoded as a generic JSON object.
func (c *Collection[T]) Records(ctx context.Context) ([]map[string]any, error) {
	rows, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// seedBatch is one collection's share of a fixture, staged for a check then
// commit sequence spanning every collection.
type seedBatch struct {
	collection string
	rows       int
	check      func() error
	commit     func() error
	rollback   func() error
}

func (c *Collection[T]) stage(raw json.RawMessage) (*seedBatch, error) {
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	rows = slices.DeleteFunc(rows, isZero[T])
	base := c.table.Len()
	return &seedBatch{
		collection: c.name,
		rows:       len(rows),
		check: func() error {
			if err := c.table.CheckAppend(rows); err != nil {
				return c.wrap(err)
			}
			return nil
		},
		commit: func() error {
			base = c.table.Len()
			if err := c.table.AppendAll(rows); err != nil {
				return c.wrap(err)
			}
			return nil
		},
		rollback: func() error {
			return c.table.Truncate(base)
		},
	}, nil
}

// AnyCollection is the type-erased view of a [Collection] used by exports and
// tooling.
type AnyCollection interface {
	Name() string
	Indexes() []string
	Columns() []jsonldb.Column
	Count(ctx context.Context) (int, error)
	Records(ctx context.Context) ([]map[string]any, error)
	stage(raw json.RawMessage) (*seedBatch, error)
}
