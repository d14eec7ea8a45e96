// Package queue persists pipeline items and exposes the status transitions
// that drive their lifecycle.
//
// The Store interface is the single source of truth for item semantics:
// lookup by name or content fingerprint, insert-or-merge upserts, the
// processing/uploaded/failed transition writes, and the filtered listings the
// orchestrator selects work from. Two interchangeable backends implement it,
// a SQLite database and a single JSON document, chosen by store.driver at
// startup. Nothing outside this package may branch on which backend is
// active.
//
// Schema changes to the SQLite backend bump schemaVersion in schema.go;
// users clear the store file to adopt the new schema.
package queue
