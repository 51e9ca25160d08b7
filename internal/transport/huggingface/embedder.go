// Package huggingface calls a hosted feature-extraction endpoint
// (Hugging Face Inference API or a compatible server).
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/metrics"
)

// DefaultTimeout bounds every inference call.
const DefaultTimeout = 30 * time.Second

const (
	providerName = "huggingface"
	maxErrorBody = 512
)

// Config holds the endpoint settings.
type Config struct {
	Endpoint string
	Token    string
	Model    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Embedder posts {"inputs": text} and reads back the vector.
type Embedder struct {
	endpoint string
	token    string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

// NewEmbedder creates a remote embedder.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("huggingface endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			e.countError("timeout")
			return domain.EmbeddingResult{}, fmt.Errorf("inference call: %w", domain.ErrUpstreamTimeout)
		}
		e.countError("transport")
		return domain.EmbeddingResult{}, fmt.Errorf("inference call: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e.countError("status")
		return domain.EmbeddingResult{}, fmt.Errorf("inference status %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(snippet), domain.ErrUpstream)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			e.countError("timeout")
			return domain.EmbeddingResult{}, fmt.Errorf("read body: %w", domain.ErrUpstreamTimeout)
		}
		e.countError("transport")
		return domain.EmbeddingResult{}, fmt.Errorf("read body: %v: %w", err, domain.ErrUpstream)
	}

	vec, err := parseVector(raw)
	if err != nil {
		e.countError("malformed")
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck embeds a short fixed string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "health"); err != nil {
		return fmt.Errorf("health embed: %w", err)
	}
	return nil
}

func (e *Embedder) countError(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, kind).Inc()
}

// parseVector accepts [[f, ...]] (first row used) or a flat [f, ...].
func parseVector(raw []byte) ([]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, fmt.Errorf("empty embedding response: %w", domain.ErrUpstream)
		}
		return nested[0], nil
	}

	var flat []float32
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("malformed embedding response: %w", domain.ErrUpstream)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrUpstream)
	}
	return flat, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
