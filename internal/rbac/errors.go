package rbac

import "errors"

var (
	// ErrUnknownRole is returned by ParseRole for values outside the role enum
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownPermission is returned by ParsePermission for unknown tokens
	ErrUnknownPermission = errors.New("unknown permission")
)
