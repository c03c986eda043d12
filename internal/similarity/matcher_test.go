package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/normanking/jarvis/internal/embedding"
	"github.com/normanking/jarvis/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder returns canned vectors and counts calls per text.
type fixedEmbedder struct {
	vectors map[string][]float32
	calls   map[string]int
	err     error
}

func newFixedEmbedder(vectors map[string][]float32) *fixedEmbedder {
	return &fixedEmbedder{vectors: vectors, calls: make(map[string]int)}
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls[text]++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}
func (f *fixedEmbedder) Dimension() int    { return 3 }
func (f *fixedEmbedder) ModelName() string { return "fixed" }

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestFindBestMatchEmptyKnowledgeBase(t *testing.T) {
	emb := newFixedEmbedder(nil)
	m := NewMatcher(emb)

	_, found, err := m.FindBestMatch(context.Background(), "anything", knowledge.NewKnowledgeBase())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, emb.calls)

	_, found, err = m.FindBestMatch(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindBestMatchThresholdBoundary(t *testing.T) {
	kb := knowledge.NewKnowledgeBase(knowledge.Entry{Question: "q", Answer: "a"})

	tests := []struct {
		name  string
		score float64
		want  bool
	}{
		{"exactly threshold", 0.7, false},
		{"just above", 0.70000001, true},
		{"below", 0.69, false},
		{"perfect", 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(newFixedEmbedder(nil))
			m.similarity = func(a, b []float32) float64 { return tt.score }

			match, found, err := m.FindBestMatch(context.Background(), "u", kb)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
			assert.Equal(t, "q", match.Question)
			assert.Equal(t, tt.score, match.Score)
		})
	}
}

func TestFindBestMatchPicksHighest(t *testing.T) {
	emb := newFixedEmbedder(map[string][]float32{
		"how do bees communicate":       {1, 0, 0},
		"what is the capital of france": {0, 1, 0},
		"how do bees talk":              {0.9, 0.1, 0},
	})
	kb := knowledge.NewKnowledgeBase(
		knowledge.Entry{Question: "what is the capital of france", Answer: "Paris"},
		knowledge.Entry{Question: "how do bees communicate", Answer: "through dance"},
	)

	match, found, err := NewMatcher(emb).FindBestMatch(context.Background(), "how do bees talk", kb)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "how do bees communicate", match.Question)
	assert.Equal(t, "through dance", match.Answer)
	assert.Greater(t, match.Score, 0.9)
}

func TestFindBestMatchTieKeepsFirst(t *testing.T) {
	emb := newFixedEmbedder(map[string][]float32{
		"first":  {1, 0, 0},
		"second": {1, 0, 0},
		"query":  {1, 0, 0},
	})
	kb := knowledge.NewKnowledgeBase(
		knowledge.Entry{Question: "first", Answer: "1"},
		knowledge.Entry{Question: "second", Answer: "2"},
	)

	match, found, err := NewMatcher(emb).FindBestMatch(context.Background(), "query", kb)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", match.Question)
}

func TestFindBestMatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(embedding.NewHashEmbedder(128))
	kb := knowledge.NewKnowledgeBase(
		knowledge.Entry{Question: "how do bees communicate", Answer: "through dance"},
		knowledge.Entry{Question: "what is the capital of france", Answer: "Paris"},
	)

	first, found1, err := m.FindBestMatch(ctx, "how do bees communicate", kb)
	require.NoError(t, err)
	second, found2, err := m.FindBestMatch(ctx, "how do bees communicate", kb)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, found1, found2)
	assert.True(t, found1)
	assert.InDelta(t, 1.0, first.Score, 1e-6)
}

func TestFindBestMatchMemoisesQuestions(t *testing.T) {
	emb := newFixedEmbedder(map[string][]float32{"q": {1, 0, 0}})
	kb := knowledge.NewKnowledgeBase(knowledge.Entry{Question: "q", Answer: "a"})
	m := NewMatcher(emb)

	for i := 0; i < 3; i++ {
		_, _, err := m.FindBestMatch(context.Background(), "u", kb)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, emb.calls["q"])
	assert.Equal(t, 3, emb.calls["u"])
}

func TestFindBestMatchEmbedError(t *testing.T) {
	emb := newFixedEmbedder(nil)
	emb.err = errors.New("provider down")
	kb := knowledge.NewKnowledgeBase(knowledge.Entry{Question: "q", Answer: "a"})

	_, found, err := NewMatcher(emb).FindBestMatch(context.Background(), "u", kb)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestFindBestMatchZeroVector(t *testing.T) {
	emb := newFixedEmbedder(map[string][]float32{"q": {1, 0, 0}})
	kb := knowledge.NewKnowledgeBase(knowledge.Entry{Question: "q", Answer: "a"})

	// Unknown text embeds to the zero vector.
	match, found, err := NewMatcher(emb).FindBestMatch(context.Background(), "???", kb)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, match.Score)
}

func TestWithThreshold(t *testing.T) {
	assert.Equal(t, 0.85, NewMatcher(nil, WithThreshold(0.85)).Threshold())
	assert.Equal(t, DefaultThreshold, NewMatcher(nil, WithThreshold(0)).Threshold())
	assert.Equal(t, DefaultThreshold, NewMatcher(nil, WithThreshold(1.5)).Threshold())
}

type stubIndex struct{ key string }

func (s stubIndex) Nearest(query []float32, items []Item) (Scored, bool) {
	return Scored{Key: s.key, Score: 0.99}, true
}

func TestWithIndex(t *testing.T) {
	kb := knowledge.NewKnowledgeBase(
		knowledge.Entry{Question: "a", Answer: "1"},
		knowledge.Entry{Question: "b", Answer: "2"},
	)
	m := NewMatcher(newFixedEmbedder(nil), WithIndex(stubIndex{key: "b"}))

	match, found, err := m.FindBestMatch(context.Background(), "u", kb)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", match.Answer)
}

func TestRank(t *testing.T) {
	emb := newFixedEmbedder(map[string][]float32{
		"a": {0, 1, 0},
		"b": {1, 0, 0},
		"c": {1, 1, 0},
		"u": {1, 0, 0},
	})
	kb := knowledge.NewKnowledgeBase(
		knowledge.Entry{Question: "a", Answer: "1"},
		knowledge.Entry{Question: "b", Answer: "2"},
		knowledge.Entry{Question: "c", Answer: "3"},
	)

	ranked, err := NewMatcher(emb).Rank(context.Background(), "u", kb)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{ranked[0].Question, ranked[1].Question, ranked[2].Question})
}
