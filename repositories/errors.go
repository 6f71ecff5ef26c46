package repositories

import "errors"

// ErrNotFound is wrapped by repositories when a lookup matches no row
var ErrNotFound = errors.New("record not found")
