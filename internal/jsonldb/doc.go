// Package jsonldb provides a generic, concurrent-safe, JSONL-backed table store.
//
// # Overview
//
// The package centers around [Table], a generic container that stores rows in a
// JSONL (JSON Lines) file with full in-memory caching for fast reads. Tables are
// safe for concurrent use by multiple goroutines. Rows are keyed by a string
// primary key returned by [Row.GetID]; a key may appear at most once.
//
// # Concurrency: Pessimistic Locking
//
// Every mutation holds the table write lock for the whole check-then-write
// sequence, so constraint checks and the write they guard cannot interleave
// with another writer.
//
// # Secondary Indexes
//
// [UniqueIndex], [Index] and [MultiIndex] provide O(1) lookups by arbitrary
// keys, staying synchronized with table mutations via [TableObserver]. A
// [UniqueIndex] is also a [Constraint]: the table consults it before any row is
// written and rejects the write with a [*ConflictError].
//
// # Batches
//
// [Table.CheckAppend] vets a batch of rows without writing anything and
// [Table.AppendAll] writes the batch in one file append. Callers coordinating
// several tables check every batch first, then commit, and use
// [Table.Truncate] to undo an already committed batch.
//
// # File Format
//
// JSONL files with line 1 as schema header, subsequent lines as JSON rows.
// Rewrites go to a temporary file that is renamed over the original.
package jsonldb
