// Package content talks to the plant content provider, the upstream service
// that owns the plant catalogue.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/metrics"
)

// DefaultTimeout bounds every content provider call.
const DefaultTimeout = 60 * time.Second

const (
	apiKeyHeader = "x-api-key"
	maxErrorBody = 512
)

// Config holds the content provider settings.
type Config struct {
	// PlantsURL returns every plant as a JSON array.
	PlantsURL string
	// PlantURL returns one plant by ?name=.
	PlantURL string
	APIKey   string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client fetches plant records over HTTP.
type Client struct {
	plantsURL string
	plantURL  string
	apiKey    string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates a content provider client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.PlantsURL == "" {
		return nil, fmt.Errorf("content plants url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		plantsURL: cfg.PlantsURL,
		plantURL:  cfg.PlantURL,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

// FetchAll returns the full plant catalogue in upstream order.
func (c *Client) FetchAll(ctx context.Context) ([]plant.Record, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, "fetch_all", c.plantsURL, &raw); err != nil {
		return nil, err
	}

	records := make([]plant.Record, 0, len(raw))
	for i, m := range raw {
		r, err := plant.FromMap(m)
		if err != nil {
			c.logger.Warn("Skipping malformed plant record", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// GetByName returns one plant. A 404 maps to domain.ErrNotFound.
func (c *Client) GetByName(ctx context.Context, name string) (plant.Record, error) {
	if c.plantURL == "" {
		return nil, fmt.Errorf("plant lookup url not configured: %w", domain.ErrUpstream)
	}
	u, err := url.Parse(c.plantURL)
	if err != nil {
		return nil, fmt.Errorf("parse plant url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	var m map[string]any
	if err := c.getJSON(ctx, "get_by_name", u.String(), &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("plant %q: %w", name, domain.ErrNotFound)
	}
	return plant.Record(m), nil
}

func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ContentRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			metrics.ContentRequestsTotal.WithLabelValues(op, "timeout").Inc()
			return fmt.Errorf("content %s: %w", op, domain.ErrUpstreamTimeout)
		}
		metrics.ContentRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("content %s: %v: %w", op, err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	metrics.ContentRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("content %s: %w", op, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("content %s: status %d: %s: %w", op, resp.StatusCode, snippet, domain.ErrUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("content %s: read body: %w", op, domain.ErrUpstreamTimeout)
		}
		return fmt.Errorf("content %s: decode: %v: %w", op, err, domain.ErrUpstream)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
