package types

import "errors"

// exported errors
var (
	ErrInvalidContext      = errors.New("invalid request context")
	ErrUnknownPermission   = errors.New("unknown permission")
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrUnknownRole         = errors.New("unknown role")
	ErrStoreUnavailable    = errors.New("backing store unavailable")
	ErrUnsupportedChange   = errors.New("persister changed in an unsupported way")
)
