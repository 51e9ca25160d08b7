package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

const testModel = "text-embedding-3-small"

// embeddingsCall is the subset of the request body the provider must send.
type embeddingsCall struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions"`
	EncodingFormat string   `json:"encoding_format"`
}

// fakeAPI serves /embeddings with vectors chosen by reply and counts requests.
type fakeAPI struct {
	*httptest.Server
	calls atomic.Int32
	mu    sync.Mutex
	last  embeddingsCall
}

func (f *fakeAPI) lastCall() embeddingsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newFakeAPI(t *testing.T, reply func(call embeddingsCall) []openai.Embedding) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		var call embeddingsCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.mu.Lock()
		f.last = call
		f.mu.Unlock()

		resp := openai.EmbeddingResponse{
			Object: "list",
			Data:   reply(call),
			Model:  openai.EmbeddingModel(call.Model),
			Usage:  openai.Usage{PromptTokens: 3 * len(call.Input), TotalTokens: 3 * len(call.Input)},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestEmbedder(baseURL string, dims int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      testModel,
		Dimensions: dims,
		Provider:   "openai",
		Logger:     zap.NewNop(),
	})
}

// inputVector encodes the input position so order can be checked.
func inputVector(i int) []float32 { return []float32{float32(i), 1} }

func TestEmbedder_Embed_Query(t *testing.T) {
	api := newFakeAPI(t, func(embeddingsCall) []openai.Embedding {
		return []openai.Embedding{{Object: "embedding", Embedding: []float32{0.6, 0.8}, Index: 0}}
	})

	res, err := newTestEmbedder(api.URL, 2).Embed(context.Background(), "skin problems")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 0.6 || res.Embedding[1] != 0.8 {
		t.Errorf("unexpected vector %v", res.Embedding)
	}
	if res.PromptTokens != 3 || res.TotalTokens != 3 {
		t.Errorf("usage = %d/%d, want 3/3", res.PromptTokens, res.TotalTokens)
	}

	call := api.lastCall()
	if len(call.Input) != 1 || call.Input[0] != "skin problems" {
		t.Errorf("input = %v", call.Input)
	}
	if call.Model != testModel || call.Dimensions != 2 || call.EncodingFormat != "float" {
		t.Errorf("request = %+v", call)
	}
}

func TestEmbedder_Embed_OmitsDimensionsWhenUnset(t *testing.T) {
	api := newFakeAPI(t, func(embeddingsCall) []openai.Embedding {
		return []openai.Embedding{{Embedding: []float32{1}}}
	})

	if _, err := newTestEmbedder(api.URL, 0).Embed(context.Background(), "fever"); err != nil {
		t.Fatal(err)
	}
	if d := api.lastCall().Dimensions; d != 0 {
		t.Errorf("dimensions sent without configuration: %d", d)
	}
}

func TestEmbedder_BatchEmbed_CorpusOrder(t *testing.T) {
	docs := []string{
		"common name: Tulsi. medicinal uses: fever, cold",
		"common name: Neem. medicinal uses: skin, acne",
		"common name: Aloe Vera. medicinal uses: skin, burns",
	}
	api := newFakeAPI(t, func(call embeddingsCall) []openai.Embedding {
		out := make([]openai.Embedding, len(call.Input))
		// reversed: output must follow Index, not arrival order
		for i := range call.Input {
			j := len(call.Input) - 1 - i
			out[i] = openai.Embedding{Object: "embedding", Embedding: inputVector(j), Index: j}
		}
		return out
	})

	res, err := newTestEmbedder(api.URL, 2).BatchEmbed(context.Background(), docs)
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if api.calls.Load() != 1 {
		t.Fatalf("expected one API call for the corpus, got %d", api.calls.Load())
	}
	if len(res.Embeddings) != len(docs) {
		t.Fatalf("got %d embeddings for %d plants", len(res.Embeddings), len(docs))
	}
	sent := api.lastCall().Input
	for i := range docs {
		if res.Embeddings[i][0] != float32(i) {
			t.Errorf("[%d] = %v, out of order", i, res.Embeddings[i])
		}
		if sent[i] != docs[i] {
			t.Errorf("input[%d] = %q", i, sent[i])
		}
	}
	if res.TotalTokens != 9 {
		t.Errorf("TotalTokens = %d, want 9", res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_EmptyCorpus(t *testing.T) {
	api := newFakeAPI(t, func(embeddingsCall) []openai.Embedding { return nil })

	res, err := newTestEmbedder(api.URL, 2).BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || api.calls.Load() != 0 {
		t.Errorf("empty corpus must not call the API")
	}
}

func TestEmbedder_ResponseErrors(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		reply []openai.Embedding
		want  string
	}{
		{"count mismatch", []string{"tulsi", "neem"}, []openai.Embedding{{Embedding: inputVector(0)}}, "count mismatch"},
		{"empty data", []string{"tulsi"}, nil, "empty embedding response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(t, func(embeddingsCall) []openai.Embedding { return tc.reply })

			_, err := newTestEmbedder(api.URL, 2).BatchEmbed(context.Background(), tc.texts)
			if !errors.Is(err, domain.ErrUpstream) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEmbedder_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"rate limited", http.StatusTooManyRequests,
			`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`, "rate limit exceeded"},
		{"server error", http.StatusInternalServerError,
			`{"error":{"message":"upstream overloaded","type":"server_error"}}`, "500"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestEmbedder(srv.URL, 2).Embed(context.Background(), "aloe vera")
			if !errors.Is(err, domain.ErrUpstream) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEmbedder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestEmbedder(srv.URL, 2).Embed(ctx, "neem")
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestEmbedder_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"models listed", http.StatusOK, false},
		{"bad key", http.StatusUnauthorized, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var embedCalls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/embeddings" {
					embedCalls.Add(1)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				if tc.status == http.StatusOK {
					_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"` + testModel + `","object":"model"}]}`))
					return
				}
				_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			err := newTestEmbedder(srv.URL, 2).HealthCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("HealthCheck() = %v, wantErr %v", err, tc.wantErr)
			}
			if embedCalls.Load() != 0 {
				t.Error("health check must not spend embedding tokens")
			}
		})
	}
}

func TestParseAPIError_Detail(t *testing.T) {
	err := parseAPIError(&openai.RequestError{HTTPStatusCode: 400, Body: []byte(`{"detail":"input too long"}`)})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "input too long") {
		t.Errorf("detail missing from %q", err.Error())
	}
}
