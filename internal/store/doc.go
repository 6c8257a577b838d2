// Package store holds the in-memory vector index and its on-disk
// snapshot format.
//
// Chunks live in memory grouped by file, so updating a file swaps its
// whole chunk set in one step under the write lock. Search is a linear
// cosine scan; workspaces stay small enough that exact search beats the
// bookkeeping of an approximate index.
//
// Snapshots are bbolt files written to a temp path and renamed into
// place. Each snapshot carries the workspace fingerprint it was built
// from, so a stale snapshot is detected before it is trusted.
package store
