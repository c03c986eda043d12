// Package embedding turns text into dense vectors for semantic matching.
//
// Three providers are available: a local hashed bag-of-words embedder that
// needs no network, an Ollama client and an OpenAI-compatible client. All of
// them are deterministic for a given model, which lets callers memoise
// results with Cached.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension, or 0 if unknown until the
	// first call.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// ErrEmptyResponse is returned when a provider answers without a vector.
var ErrEmptyResponse = errors.New("embedding: provider returned no vector")

// Provider names accepted by New.
const (
	ProviderLocal  = "local"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Dimensions int
	Endpoint   string
	Model      string
	APIKey     string
	Timeout    time.Duration
	CacheSize  int
}

// New builds the provider described by cfg, wrapped in a cache when
// cfg.CacheSize is positive.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderLocal:
		e = NewHashEmbedder(cfg.Dimensions)
	case ProviderOllama:
		e = NewOllamaEmbedder(OllamaConfig{
			Host:    cfg.Endpoint,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			BaseURL: cfg.Endpoint,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}
