package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(256)

	t.Run("deterministic", func(t *testing.T) {
		a, err := e.Embed(ctx, "how do bees communicate")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "how do bees communicate")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a, _ := e.Embed(ctx, "How do BEES communicate?")
		b, _ := e.Embed(ctx, "how do bees communicate")
		assert.Equal(t, a, b)
	})

	t.Run("stopwords ignored", func(t *testing.T) {
		a, _ := e.Embed(ctx, "tell me about the capital of france")
		b, _ := e.Embed(ctx, "capital france")
		assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
	})

	t.Run("unrelated texts score low", func(t *testing.T) {
		a, _ := e.Embed(ctx, "how do bees communicate")
		b, _ := e.Embed(ctx, "what is the capital of france")
		assert.Less(t, cosine(a, b), 0.5)
	})

	t.Run("empty text is zero vector", func(t *testing.T) {
		v, err := e.Embed(ctx, "  ?! ")
		require.NoError(t, err)
		assert.Len(t, v, 256)
		for _, x := range v {
			assert.Zero(t, x)
		}
	})

	t.Run("stopword-only text still embeds", func(t *testing.T) {
		v, _ := e.Embed(ctx, "what is it")
		assert.NotZero(t, cosine(v, v))
	})
}

func TestHashEmbedderDimensionFallback(t *testing.T) {
	assert.Equal(t, DefaultHashDimensions, NewHashEmbedder(0).Dimension())
	assert.Equal(t, 64, NewHashEmbedder(64).Dimension())
}

func TestOllamaEmbedder(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.5,0.25,-1]}`))
	}))
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: server.URL + "/", Timeout: time.Second})
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, 0.25, -1}, vec)
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
	assert.Equal(t, map[string]string{"model": DefaultOllamaModel, "prompt": "hello"}, gotBody)
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "model not found"},
		{"empty vector", http.StatusOK, `{"embedding":[]}`},
		{"bad json", http.StatusOK, `{"embedding":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewOllamaEmbedder(OllamaConfig{Host: server.URL}).Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0,0.5]}],"model":"test-model"}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test", Model: "test-model"})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0.5}, vec)
	assert.Equal(t, "test-model", e.ModelName())
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.Error(t, err)
}

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text))}, nil
}
func (c *countingEmbedder) Dimension() int    { return 1 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func TestCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 2)
	require.NoError(t, err)

	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, " a ")
	_, _ = c.Embed(ctx, "bb")
	assert.Equal(t, 2, inner.calls)

	// Evicts "a".
	_, _ = c.Embed(ctx, "ccc")
	_, _ = c.Embed(ctx, "a")
	assert.Equal(t, 4, inner.calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(4), stats.Misses)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, "counting", c.ModelName())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantErr   bool
	}{
		{"local default", Config{}, "hash-bow", false},
		{"local cached", Config{Provider: "local", CacheSize: 10}, "hash-bow", false},
		{"ollama", Config{Provider: "ollama", Model: "mxbai-embed-large"}, "mxbai-embed-large", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, DefaultOpenAIModel, false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"unknown", Config{Provider: "word2vec"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, e.ModelName())
		})
	}
}
