package store

import "errors"

// ErrNotFound is returned by mutations targeting a piece that does not
// exist. Reads return (nil, nil) for missing rows instead.
var ErrNotFound = errors.New("not found")
