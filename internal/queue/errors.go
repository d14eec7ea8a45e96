package queue

import "errors"

// ErrNotFound indicates a transition write referenced a name with no record.
var ErrNotFound = errors.New("queue: item not found")

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("queue: schema version mismatch")

// ErrUnknownDriver indicates an unrecognized store.driver value.
var ErrUnknownDriver = errors.New("queue: unknown store driver")
