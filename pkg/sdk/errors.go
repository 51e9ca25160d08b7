package plantsearch

import "github.com/ayurkosh/plantsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument   = domain.ErrInvalidArgument
	ErrUnavailable       = domain.ErrUnavailable
	ErrNotFound          = domain.ErrNotFound
	ErrUpstream          = domain.ErrUpstream
	ErrUpstreamTimeout   = domain.ErrUpstreamTimeout
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrInternal          = domain.ErrInternal
)
