package request

import (
	"fmt"
	"strings"

	"github.com/ayurkosh/plantsearch/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 1000
)

// Request is a validated search query.
type Request struct {
	query string
	topK  int
}

// New validates search parameters.
// A nil topK means "not provided" and selects DefaultTopK. Zero is accepted and
// yields no results; negative values are rejected. topK is clamped to maxTopK
// (MaxTopK when maxTopK <= 0).
func New(query string, topK *int, maxTopK int) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidArgument)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidArgument)
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}

	k := DefaultTopK
	if topK != nil {
		k = *topK
	}
	if k < 0 {
		return Request{}, fmt.Errorf("top_k must be >= 0: %w", domain.ErrInvalidArgument)
	}
	if k > maxTopK {
		k = maxTopK
	}

	return Request{query: query, topK: k}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }
