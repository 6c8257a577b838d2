package embedder

import (
	"fmt"
	"log"
	"os"
)

const defaultCacheSize = 10000

// NewFromEnv creates an Embedder based on environment configuration.
// SEMINDEX_EMBEDDING_PROVIDER selects the provider explicitly; otherwise
// OpenAI is chosen when OPENAI_API_KEY is set, falling back to Ollama.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(defaultCacheSize)

	provider := os.Getenv(EnvProvider)
	if provider == "" {
		if os.Getenv(EnvOpenAIAPIKey) != "" {
			provider = ProviderOpenAI
		} else {
			provider = ProviderOllama
		}
	}

	switch provider {
	case ProviderOllama:
		log.Printf("embedder: using ollama provider")
		return NewOllamaProvider(os.Getenv(EnvOllamaURL), cache), nil
	case ProviderOpenAI:
		log.Printf("embedder: using openai provider")
		return NewOpenAIProvider(os.Getenv(EnvOpenAIAPIKey), cache)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
