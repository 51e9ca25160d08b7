package search

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/request"
	"github.com/ayurkosh/plantsearch/internal/domain/search/result"
	"github.com/ayurkosh/plantsearch/internal/domain/search/text"
	"github.com/ayurkosh/plantsearch/internal/logger"
	"github.com/ayurkosh/plantsearch/internal/metrics"
)

// DefaultSuggestLimit caps autocomplete results when no limit is given.
const DefaultSuggestLimit = 10

// Service ranks plants against free-text queries.
type Service struct {
	corpus       Corpus
	embed        Embedder
	lookup       PlantLookup
	boostWeight  float64
	suggestLimit int
}

// Option configures the search service.
type Option func(*Service)

// WithBoostWeight overrides DefaultBoostWeight.
func WithBoostWeight(w float64) Option {
	return func(s *Service) { s.boostWeight = w }
}

// WithSuggestLimit overrides DefaultSuggestLimit for Suggest calls without a
// limit. Values <= 0 are ignored.
func WithSuggestLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestLimit = n
		}
	}
}

// WithLookup enables Lookup against the content provider.
func WithLookup(l PlantLookup) Option {
	return func(s *Service) { s.lookup = l }
}

// New creates a search service.
func New(c Corpus, embed Embedder, opts ...Option) *Service {
	s := &Service{corpus: c, embed: embed, boostWeight: DefaultBoostWeight, suggestLimit: DefaultSuggestLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search returns the top-k plants for the query, best first.
func (s *Service) Search(ctx context.Context, req *request.Request) (results []result.Result, err error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	defer func() {
		if p := recover(); p != nil {
			log.Error("Panic during ranking",
				zap.String("stage", "rank"),
				zap.String("query", req.Query()),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			results, err = nil, fmt.Errorf("ranking panicked: %w", domain.ErrInternal)
		}
		observe("search", start, err)
		if err == nil {
			metrics.SearchResults.Observe(float64(len(results)))
		}
	}()

	if strings.TrimSpace(req.Query()) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidArgument)
	}

	c, err := s.corpus.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if req.TopK() == 0 {
		return []result.Result{}, nil
	}

	normalized := text.NormalizeQuery(req.Query())
	emb, err := s.embed.Embed(ctx, normalized)
	if err != nil {
		log.Error("Query embedding failed", zap.String("stage", "embed"), zap.String("query", normalized), zap.Error(err))
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	results, err = rank(c, emb.Embedding, text.Tokenize(normalized), s.boostWeight, req.TopK())
	if err != nil {
		log.Error("Ranking failed", zap.String("stage", "rank"), zap.String("query", normalized), zap.Error(err))
		return nil, fmt.Errorf("%w: rank: %w", domain.ErrInternal, err)
	}
	return results, nil
}

// Suggest returns up to limit plants whose common or botanical name starts
// with prefix, case-insensitively, in corpus order. limit <= 0 selects the
// configured suggest limit.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) (out []result.Suggestion, err error) {
	start := time.Now()
	defer func() { observe("suggest", start, err) }()

	c, err := s.corpus.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	p := strings.ToLower(strings.TrimSpace(prefix))
	out = []result.Suggestion{}
	if p == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = s.suggestLimit
	}

	for i := 0; i < c.Len() && len(out) < limit; i++ {
		r := c.Record(i)
		common, botanical := r.CommonName(), r.BotanicalName()
		if strings.HasPrefix(strings.ToLower(common), p) || strings.HasPrefix(strings.ToLower(botanical), p) {
			out = append(out, result.Suggestion{CommonName: common, BotanicalName: botanical})
		}
	}
	return out, nil
}

// Lookup fetches a single plant by name from the content provider.
func (s *Service) Lookup(ctx context.Context, name string) (rec plant.Record, err error) {
	start := time.Now()
	defer func() { observe("lookup", start, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidArgument)
	}
	if s.lookup == nil {
		return nil, fmt.Errorf("plant lookup not configured: %w", domain.ErrUnavailable)
	}

	rec, err = s.lookup.GetByName(ctx, name)
	if err != nil {
		logger.FromContext(ctx).Warn("Plant lookup failed",
			zap.String("stage", "fetch"), zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	return rec, nil
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}
