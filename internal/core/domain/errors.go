package domain

import "errors"

// Sentinel errors for profile views.
var (
	// ErrFetchFailure covers every way the single upstream fetch can fail:
	// transport errors, non-success status, malformed or empty envelopes.
	// HTTP Status: rendered as the failed view, never surfaced raw
	ErrFetchFailure = errors.New("fetch user failed")

	// ErrViewNotFound indicates the view id is unknown or already torn down.
	// HTTP Status: 404 Not Found
	ErrViewNotFound = errors.New("view not found")

	// ErrTooManyViews indicates the registry is at capacity.
	// HTTP Status: 503 Service Unavailable
	ErrTooManyViews = errors.New("too many active views")
)
