package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

var (
	// ErrNotFound is returned when a row with the requested ID does not exist.
	ErrNotFound = errors.New("row not found")
	// ErrConflict matches every [*ConflictError].
	ErrConflict = errors.New("conflict")
	// ErrInvalidRow is wrapped by errors from [Row.Validate] on write.
	ErrInvalidRow = errors.New("invalid row")

	errIDRequired = errors.New("row id is required")
)

// PrimaryKey is the index name reported by a [*ConflictError] raised for a
// duplicate row ID.
const PrimaryKey = "id"

// ConflictError reports a write rejected because a key is already taken.
type ConflictError struct {
	Index string // Index name, PrimaryKey for the row ID.
	Key   string // Offending key.
	Owner string // ID of the row already holding the key; empty within a batch.
}

func (e *ConflictError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("%s %q already used by row %q", e.Index, e.Key, e.Owner)
	}
	return fmt.Sprintf("%s %q is duplicated", e.Index, e.Key)
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Cloner is implemented by types that can clone themselves.
type Cloner[T any] interface {
	Clone() T
}

// Row is the constraint on types stored in a [Table].
type Row[T any] interface {
	Cloner[T]
	// GetID returns the primary key. It must not be empty.
	GetID() string
	// Validate reports whether the row is well-formed.
	Validate() error
}

// TableObserver is notified after each committed mutation. Callbacks run with
// the table write lock held and must not call back into the table.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Constraint vets rows before they are written. rows are the new or replacing
// rows; a row replacing itself (same ID) never conflicts with its own previous
// version.
type Constraint[T any] interface {
	Check(rows []T) error
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Row[T]] struct {
	path string
	mu   sync.RWMutex

	header      schemaHeader
	rows        []T
	byID        map[string]int
	observers   []TableObserver[T]
	constraints []Constraint[T]
}

// NewTable creates a new Table and loads all data from the file.
//
// A missing file is an empty table; the file is created on first write.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: data directories are world readable
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	cols, err := schemaFromType[T]()
	if err != nil {
		return nil, err
	}
	table := &Table[T]{
		path:   path,
		header: schemaHeader{Version: currentVersion, Columns: cols},
		byID:   map[string]int{},
	}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

// CreateTable is like [NewTable] but also writes the schema header when the
// file does not exist yet, so the table is visible on disk while still empty.
func CreateTable[T Row[T]](path string) (*Table[T], error) {
	table, err := NewTable[T](path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		table.mu.Lock()
		defer table.mu.Unlock()
		if err := table.rewrite(table.rows); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return table, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	byID := map[string]int{}
	sawHeader := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !sawHeader {
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("failed to parse schema header in %s: %w", t.path, err)
			}
			if err := h.Validate(); err != nil {
				return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			sawHeader = true
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s:%d: %w", t.path, lineNo, err)
		}
		if isNil(row) {
			return fmt.Errorf("%s:%d: %w: null row", t.path, lineNo, ErrInvalidRow)
		}
		id := row.GetID()
		if id == "" {
			return fmt.Errorf("%s:%d: %w", t.path, lineNo, errIDRequired)
		}
		if _, dup := byID[id]; dup {
			return fmt.Errorf("%s:%d: %w", t.path, lineNo, &ConflictError{Index: PrimaryKey, Key: id})
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("%s:%d: invalid row %q: %w", t.path, lineNo, id, err)
		}
		byID[id] = len(rows)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}
	if rows == nil {
		rows = []T{}
	}
	t.rows = rows
	t.byID = byID
	return nil
}

// Path returns the backing file path.
func (t *Table[T]) Path() string {
	return t.path
}

// Columns returns the schema columns reflected from T.
func (t *Table[T]) Columns() []Column {
	out := make([]Column, len(t.header.Columns))
	copy(out, t.header.Columns)
	return out
}

// AddObserver registers an observer and replays the existing rows to it as
// appends, so indexes created after loading start out complete.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range t.rows {
		o.OnAppend(row)
	}
	t.observers = append(t.observers, o)
}

// AddConstraint registers a pre-write check.
func (t *Table[T]) AddConstraint(c Constraint[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.constraints = append(t.constraints, c)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Last returns a clone of the last row, or the zero value if empty.
func (t *Table[T]) Last() T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		var zero T
		return zero
	}
	return t.rows[len(t.rows)-1].Clone()
}

// Get returns a clone of the row with the given ID, or the zero value.
func (t *Table[T]) Get(id string) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.byID[id]; ok {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// Iter returns an iterator over clones of all rows in stored order.
func (t *Table[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// getMany returns clones of the rows with the given IDs in table order.
// Unknown IDs are skipped.
func (t *Table[T]) getMany(ids []string) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := t.byID[id]; ok {
			pos = append(pos, i)
		}
	}
	slices.Sort(pos)
	out := make([]T, len(pos))
	for j, i := range pos {
		out[j] = t.rows[i].Clone()
	}
	return out
}

func formatKey(key any) string {
	return fmt.Sprint(key)
}

// isNil reports whether row is a nil pointer, which "null" decodes to.
func isNil[T any](row T) bool {
	var zero T
	return any(row) == any(zero)
}

// check vets rows as a batch of appends against the current content. Must be
// called with t.mu held.
func (t *Table[T]) check(rows []T) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := row.GetID()
		if id == "" {
			return errIDRequired
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidRow, id, err)
		}
		if _, ok := t.byID[id]; ok {
			return &ConflictError{Index: PrimaryKey, Key: id, Owner: id}
		}
		if _, ok := seen[id]; ok {
			return &ConflictError{Index: PrimaryKey, Key: id}
		}
		seen[id] = struct{}{}
	}
	for _, c := range t.constraints {
		if err := c.Check(rows); err != nil {
			return err
		}
	}
	return nil
}

// CheckAppend reports whether [Table.AppendAll] would accept rows, without
// writing anything.
func (t *Table[T]) CheckAppend(rows []T) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.check(rows)
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	return t.AppendAll([]T{row})
}

// AppendAll adds rows in order and persists them with a single write. Either
// every row is added or none is.
func (t *Table[T]) AppendAll(rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(rows); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ensureHeader(&buf); err != nil {
		return err
	}
	owned := make([]T, len(rows))
	for i, row := range rows {
		owned[i] = row.Clone()
		data, err := json.Marshal(owned[i])
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are not secret
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}

	for _, row := range owned {
		t.byID[row.GetID()] = len(t.rows)
		t.rows = append(t.rows, row)
		for _, o := range t.observers {
			o.OnAppend(row)
		}
	}
	return nil
}

// ensureHeader writes the schema header into buf when the file is missing or
// empty. Must be called with t.mu held.
func (t *Table[T]) ensureHeader(buf *bytes.Buffer) error {
	st, err := os.Stat(t.path)
	if err == nil && st.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat table file: %w", err)
	}
	data, err := json.Marshal(&t.header)
	if err != nil {
		return fmt.Errorf("failed to marshal schema header: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}

// Update replaces the row having the same ID and persists the table. It
// returns the previous version of the row.
func (t *Table[T]) Update(row T) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	id := row.GetID()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err := row.Validate(); err != nil {
		return zero, fmt.Errorf("%w %q: %w", ErrInvalidRow, id, err)
	}
	for _, c := range t.constraints {
		if err := c.Check([]T{row}); err != nil {
			return zero, err
		}
	}

	prev := t.rows[i]
	curr := row.Clone()
	next := make([]T, len(t.rows))
	copy(next, t.rows)
	next[i] = curr
	if err := t.rewrite(next); err != nil {
		return zero, err
	}
	t.rows = next
	for _, o := range t.observers {
		o.OnUpdate(prev, curr)
	}
	return prev.Clone(), nil
}

// Delete removes the row with the given ID and persists the table. It returns
// the removed row, or ErrNotFound.
func (t *Table[T]) Delete(id string) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	prev := t.rows[i]
	next := make([]T, 0, len(t.rows)-1)
	next = append(next, t.rows[:i]...)
	next = append(next, t.rows[i+1:]...)
	if err := t.rewrite(next); err != nil {
		return zero, err
	}
	t.setRows(next)
	for _, o := range t.observers {
		o.OnDelete(prev)
	}
	return prev, nil
}

// Truncate drops every row after the first n and persists the table. It is
// the undo of an [Table.AppendAll] that started at length n.
func (t *Table[T]) Truncate(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 || n >= len(t.rows) {
		return nil
	}
	dropped := t.rows[n:]
	next := make([]T, n)
	copy(next, t.rows[:n])
	if err := t.rewrite(next); err != nil {
		return err
	}
	t.setRows(next)
	for _, row := range dropped {
		for _, o := range t.observers {
			o.OnDelete(row)
		}
	}
	return nil
}

// setRows installs rows and rebuilds the primary key map. Must be called with
// t.mu held.
func (t *Table[T]) setRows(rows []T) {
	t.rows = rows
	t.byID = make(map[string]int, len(rows))
	for i, row := range rows {
		t.byID[row.GetID()] = i
	}
}

// rewrite persists rows to a temporary file renamed over the table file. Must
// be called with t.mu held.
func (t *Table[T]) rewrite(rows []T) error {
	f, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	if err := enc.Encode(&t.header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write schema header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
