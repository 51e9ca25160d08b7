package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
)

// StaticSource serves a fixed record list, for embedded use and tests.
type StaticSource []plant.Record

// FetchAll returns a copy of the list.
func (s StaticSource) FetchAll(context.Context) ([]plant.Record, error) {
	out := make([]plant.Record, len(s))
	copy(out, s)
	return out, nil
}

// GetByName returns the first record whose common or botanical name equals
// name, ignoring case.
func (s StaticSource) GetByName(_ context.Context, name string) (plant.Record, error) {
	name = strings.TrimSpace(name)
	for _, r := range s {
		if strings.EqualFold(r.CommonName(), name) || strings.EqualFold(r.BotanicalName(), name) {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("plant %q: %w", name, domain.ErrNotFound)
}
