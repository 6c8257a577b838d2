package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider configuration
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"

	DefaultOllamaURL = "http://localhost:11434"

	OllamaDimension = 768
	OpenAIDimension = 1536

	MaxBatchSize = 100

	requestTimeout = 30 * time.Second
)

// Environment variables consulted by the factory
const (
	EnvProvider     = "SEMINDEX_EMBEDDING_PROVIDER"
	EnvOllamaURL    = "SEMINDEX_OLLAMA_URL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OllamaProvider implements Embedder against a local Ollama instance
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates an Ollama-backed embedder
func NewOllamaProvider(baseURL string, cache *Cache) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      DefaultOllamaModel,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
	}
}

// Embed generates embeddings through the Ollama embed API
func (o *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, o.cache, texts, func(ctx context.Context, misses []string) ([][]float32, error) {
		return retryWithBackoff(ctx, DefaultRetryConfig(), func() ([][]float32, error) {
			return o.callAPI(ctx, misses)
		})
	})
}

func (o *OllamaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]any{
		"model": o.model,
		"input": texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: api error %d: %s", ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(apiResp.Embeddings), len(texts))
	}

	return apiResp.Embeddings, nil
}

// Dimension returns the embedding dimension
func (o *OllamaProvider) Dimension() int { return OllamaDimension }

// Provider returns the provider name
func (o *OllamaProvider) Provider() string { return ProviderOllama }

// Close releases idle connections
func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// CacheStats reports embedding cache hits and misses
func (o *OllamaProvider) CacheStats() (hits, misses int64) {
	if o.cache == nil {
		return 0, 0
	}
	return o.cache.Stats()
}

// OpenAIProvider implements Embedder using the OpenAI embeddings API
type OpenAIProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates an OpenAI-backed embedder
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrUnavailable, EnvOpenAIAPIKey)
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      DefaultOpenAIModel,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
	}, nil
}

// Embed generates embeddings through the OpenAI embeddings API
func (o *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, o.cache, texts, func(ctx context.Context, misses []string) ([][]float32, error) {
		return retryWithBackoff(ctx, DefaultRetryConfig(), func() ([][]float32, error) {
			return o.callAPI(ctx, misses)
		})
	})
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]any{
		"input": texts,
		"model": o.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: api error %d: %s", ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrUnavailable, data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for text %d", ErrUnavailable, i)
		}
	}

	return vectors, nil
}

// Dimension returns the embedding dimension
func (o *OpenAIProvider) Dimension() int { return OpenAIDimension }

// Provider returns the provider name
func (o *OpenAIProvider) Provider() string { return ProviderOpenAI }

// Close releases idle connections
func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// CacheStats reports embedding cache hits and misses
func (o *OpenAIProvider) CacheStats() (hits, misses int64) {
	if o.cache == nil {
		return 0, 0
	}
	return o.cache.Stats()
}

// embedCached wraps a provider call with batch validation, size limits,
// and per-text cache lookups. Only cache misses hit the backend.
func embedCached(ctx context.Context, cache *Cache, texts []string,
	call func(ctx context.Context, misses []string) ([][]float32, error)) ([][]float32, error) {

	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	out := make([][]float32, len(texts))
	var misses []string
	var missIdx []int

	for i, text := range texts {
		if cache != nil {
			if vec, ok := cache.Get(ComputeHash(text)); ok {
				out[i] = vec
				continue
			}
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vectors, err := call(ctx, misses)
	if err != nil {
		return nil, err
	}

	for j, vec := range vectors {
		out[missIdx[j]] = vec
		if cache != nil {
			cache.Set(ComputeHash(misses[j]), vec)
		}
	}

	return out, nil
}
