package model

import "errors"

var (
	// ErrStoreUnavailable is returned when appending to a cache that has not
	// been created by a full fetch.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUpstreamFetch wraps network and provider failures.
	ErrUpstreamFetch = errors.New("upstream fetch failure")
	// ErrSchemaMismatch is returned for provider responses of unexpected shape.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
