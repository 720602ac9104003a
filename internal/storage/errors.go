package storage

import "errors"

// ErrNotFound is returned by every
// lookup that maps a driver-level "no rows" into a typed sentinel the
// caller can check with errors.Is instead of poking at pgx internals.
var ErrNotFound = errors.New("not found")
