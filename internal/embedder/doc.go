// Package embedder generates vector embeddings for chunk text.
//
// # Providers
//
// Two providers are supported. Ollama runs locally and is the default;
// OpenAI is selected when an API key is present or when forced through
// SEMINDEX_EMBEDDING_PROVIDER. Both share an LRU cache keyed by the
// SHA-256 of the input text, so re-embedding unchanged chunks is free.
//
// # Failure handling
//
// Transient failures are retried with exponential backoff. A provider
// that stays unreachable returns ErrUnavailable, which callers treat as
// a degradation signal rather than a fatal error.
package embedder
