package domain

import "errors"

var (
	// ErrInvalidArgument signals a malformed or empty request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable signals that the plant corpus could not be loaded.
	ErrUnavailable = errors.New("search corpus unavailable")
	// ErrNotFound signals a missing plant.
	ErrNotFound = errors.New("plant not found")
	// ErrUpstream signals a content provider or embedding endpoint failure.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamTimeout signals that an upstream call ran out of time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrDimensionMismatch signals vectors of different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInternal signals an unexpected failure during ranking.
	ErrInternal = errors.New("internal error")
)
