// Provides concurrent-safe, in-memory secondary indexes for tables.

package jsonldb

import (
	"iter"
	"sync"
)

// UniqueIndex provides O(1) lookup by a unique secondary key.
//
// Rows whose key is the zero value are not indexed, so any number of them may
// coexist. The index is also a [Constraint] on its table: a write giving a key
// already owned by another row is rejected with a [*ConflictError].
type UniqueIndex[K comparable, T Row[T]] struct {
	name    string
	table   *Table[T]
	keyFunc func(T) K
	mu      sync.Mutex
	byKey   map[K]string
}

// NewUniqueIndex creates a unique index on the given table.
//
// It fails with a [*ConflictError] when the rows already in the table violate
// uniqueness.
func NewUniqueIndex[K comparable, T Row[T]](table *Table[T], name string, keyFunc func(T) K) (*UniqueIndex[K, T], error) {
	idx := &UniqueIndex[K, T]{
		name:    name,
		table:   table,
		keyFunc: keyFunc,
		byKey:   make(map[K]string),
	}
	table.mu.Lock()
	defer table.mu.Unlock()
	var zero K
	for _, row := range table.rows {
		key := keyFunc(row)
		if key == zero {
			continue
		}
		if owner, ok := idx.byKey[key]; ok {
			return nil, &ConflictError{Index: name, Key: formatKey(key), Owner: owner}
		}
		idx.byKey[key] = row.GetID()
	}
	table.observers = append(table.observers, idx)
	table.constraints = append(table.constraints, idx)
	return idx, nil
}

// Name returns the index name.
func (idx *UniqueIndex[K, T]) Name() string {
	return idx.name
}

// Get returns the row with the given key, or the zero value if not found.
func (idx *UniqueIndex[K, T]) Get(key K) T {
	idx.mu.Lock()
	id, ok := idx.byKey[key]
	idx.mu.Unlock()
	if !ok {
		var zero T
		return zero
	}
	return idx.table.Get(id)
}

// Check implements [Constraint].
func (idx *UniqueIndex[K, T]) Check(rows []T) error {
	var zero K
	idx.mu.Lock()
	defer idx.mu.Unlock()
	batch := make(map[K]string, len(rows))
	for _, row := range rows {
		key := idx.keyFunc(row)
		if key == zero {
			continue
		}
		id := row.GetID()
		if owner, ok := idx.byKey[key]; ok && owner != id {
			return &ConflictError{Index: idx.name, Key: formatKey(key), Owner: owner}
		}
		if other, ok := batch[key]; ok && other != id {
			return &ConflictError{Index: idx.name, Key: formatKey(key)}
		}
		batch[key] = id
	}
	return nil
}

// OnAppend implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnAppend(row T) {
	var zero K
	key := idx.keyFunc(row)
	if key == zero {
		return
	}
	idx.mu.Lock()
	idx.byKey[key] = row.GetID()
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnUpdate(prev, curr T) {
	var zero K
	oldKey := idx.keyFunc(prev)
	newKey := idx.keyFunc(curr)
	idx.mu.Lock()
	if oldKey != newKey && idx.byKey[oldKey] == prev.GetID() {
		delete(idx.byKey, oldKey)
	}
	if newKey != zero {
		idx.byKey[newKey] = curr.GetID()
	}
	idx.mu.Unlock()
}

// OnDelete implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnDelete(row T) {
	key := idx.keyFunc(row)
	idx.mu.Lock()
	if idx.byKey[key] == row.GetID() {
		delete(idx.byKey, key)
	}
	idx.mu.Unlock()
}

// MultiIndex provides O(1) lookup of every row whose key set contains a given
// key. It serves multi-valued fields such as tags or languages.
//
// Zero keys are not indexed. Duplicate keys returned for one row count once.
type MultiIndex[K comparable, T Row[T]] struct {
	name    string
	table   *Table[T]
	keyFunc func(T) []K
	mu      sync.Mutex
	byKey   map[K]map[string]struct{}
}

// NewMultiIndex creates a multi-valued index on the given table.
func NewMultiIndex[K comparable, T Row[T]](table *Table[T], name string, keyFunc func(T) []K) *MultiIndex[K, T] {
	idx := &MultiIndex[K, T]{
		name:    name,
		table:   table,
		keyFunc: keyFunc,
		byKey:   make(map[K]map[string]struct{}),
	}
	table.AddObserver(idx)
	return idx
}

// Name returns the index name.
func (idx *MultiIndex[K, T]) Name() string {
	return idx.name
}

// Iter returns an iterator over all rows matching the given key, in table
// order.
func (idx *MultiIndex[K, T]) Iter(key K) iter.Seq[T] {
	return func(yield func(T) bool) {
		// Copy IDs under lock to avoid holding lock during iteration.
		idx.mu.Lock()
		ids := make([]string, 0, len(idx.byKey[key]))
		for id := range idx.byKey[key] {
			ids = append(ids, id)
		}
		idx.mu.Unlock()

		for _, row := range idx.table.getMany(ids) {
			if !yield(row) {
				return
			}
		}
	}
}

func (idx *MultiIndex[K, T]) add(row T) {
	var zero K
	id := row.GetID()
	for _, key := range idx.keyFunc(row) {
		if key == zero {
			continue
		}
		if idx.byKey[key] == nil {
			idx.byKey[key] = make(map[string]struct{})
		}
		idx.byKey[key][id] = struct{}{}
	}
}

func (idx *MultiIndex[K, T]) remove(row T) {
	id := row.GetID()
	for _, key := range idx.keyFunc(row) {
		delete(idx.byKey[key], id)
		if len(idx.byKey[key]) == 0 {
			delete(idx.byKey, key)
		}
	}
}

// OnAppend implements [TableObserver].
func (idx *MultiIndex[K, T]) OnAppend(row T) {
	idx.mu.Lock()
	idx.add(row)
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *MultiIndex[K, T]) OnUpdate(prev, curr T) {
	idx.mu.Lock()
	idx.remove(prev)
	idx.add(curr)
	idx.mu.Unlock()
}

// OnDelete implements [TableObserver].
func (idx *MultiIndex[K, T]) OnDelete(row T) {
	idx.mu.Lock()
	idx.remove(row)
	idx.mu.Unlock()
}

// Index provides O(1) lookup by a non-unique secondary key.
type Index[K comparable, T Row[T]] struct {
	*MultiIndex[K, T]
}

// NewIndex creates a non-unique index on the given table. Multiple rows may
// share the same key.
func NewIndex[K comparable, T Row[T]](table *Table[T], name string, keyFunc func(T) K) *Index[K, T] {
	return &Index[K, T]{NewMultiIndex(table, name, func(row T) []K {
		return []K{keyFunc(row)}
	})}
}
