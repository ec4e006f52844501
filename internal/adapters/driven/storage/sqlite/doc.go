// Package sqlite provides the unified SQLite-backed store for
// documents, embedding records and the audit trail.
//
// The store opens one database in WAL mode and hands out narrow store
// interfaces backed by it. Embedding vectors are stored as
// little-endian float32 blobs and replaced in full on save, so a
// concurrent reader never observes a half-written vector.
package sqlite
