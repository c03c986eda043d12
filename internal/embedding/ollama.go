package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultOllamaModel is the default model for Ollama embeddings.
const DefaultOllamaModel = "nomic-embed-text"

// DefaultOllamaHost is the default Ollama API endpoint.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host    string        // Ollama API host (default: http://127.0.0.1:11434)
	Model   string        // Embedding model (default: nomic-embed-text)
	Timeout time.Duration // Time to receive response headers (default: 30s)
}

// OllamaEmbedder generates embeddings using a local Ollama server.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client

	mu        sync.RWMutex
	dimension int
}

// NewOllamaEmbedder creates an Ollama embedder. No request is made until
// the first Embed call.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second // allows for model loading
	}

	return &OllamaEmbedder{
		host:  host,
		model: model,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// Embed requests an embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  e.model,
		"prompt": text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, ErrEmptyResponse
	}

	// Convert float64 to float32
	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}

	e.mu.Lock()
	if e.dimension != len(embedding) {
		log.Debug().Str("model", e.model).Int("dimension", len(embedding)).Msg("ollama embedding dimension detected")
		e.dimension = len(embedding)
	}
	e.mu.Unlock()

	return embedding, nil
}

// Dimension returns the dimension seen on the last successful call.
func (e *OllamaEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// ModelName returns the Ollama model name.
func (e *OllamaEmbedder) ModelName() string { return e.model }
