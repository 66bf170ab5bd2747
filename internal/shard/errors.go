package shard

import "errors"

// ErrNotFound is returned by single-item lookups (KV get, paste get, lock
// status) when no row matches.
var ErrNotFound = errors.New("shard: not found")

// ErrTokenMismatch is returned by unlock/extend when the supplied holder
// token does not match the current lock row.
var ErrTokenMismatch = errors.New("shard: lock token mismatch")

// ErrRejectedStatement is returned by the SQL sandbox when a statement
// violates the query/execute keyword policy.
var ErrRejectedStatement = errors.New("shard: statement rejected by sandbox policy")

// ErrInvalidInput is returned when caller-supplied data fails a subsystem's
// validation, independent of any storage error.
var ErrInvalidInput = errors.New("shard: invalid input")
