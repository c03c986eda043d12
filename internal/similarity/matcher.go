package similarity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/normanking/jarvis/internal/embedding"
	"github.com/normanking/jarvis/internal/knowledge"
	"github.com/rs/zerolog"
)

// Match is the best stored question for an utterance.
type Match struct {
	Question string
	Answer   string
	Score    float64
}

// Matcher embeds utterances and compares them against the questions of a
// knowledge base. Question embeddings are memoised by question text, so a
// knowledge base is embedded once per process no matter how often it is
// queried.
type Matcher struct {
	embedder  embedding.Embedder
	threshold float64
	index     Index

	// similarity is shared by the index and Rank. Tests replace it to pin
	// exact threshold boundaries.
	similarity func(a, b []float32) float64

	mu   sync.Mutex
	memo map[string][]float32
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the score a match must strictly exceed. Values outside
// (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithIndex replaces the linear scan.
func WithIndex(index Index) Option {
	return func(m *Matcher) {
		m.index = index
	}
}

// NewMatcher creates a matcher over the given embedder.
func NewMatcher(e embedding.Embedder, opts ...Option) *Matcher {
	m := &Matcher{
		embedder:   e,
		threshold:  DefaultThreshold,
		similarity: CosineSimilarity,
		memo:       make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.index == nil {
		m.index = LinearIndex{Similarity: func(a, b []float32) float64 { return m.similarity(a, b) }}
	}
	return m
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// FindBestMatch returns the stored question most similar to utterance.
// found is true only when the best score is strictly greater than the
// threshold. When found is false but the knowledge base is not empty, the
// returned Match still describes the best candidate for diagnostics.
// An empty knowledge base is never an error.
func (m *Matcher) FindBestMatch(ctx context.Context, utterance string, kb *knowledge.KnowledgeBase) (Match, bool, error) {
	if kb == nil || kb.Len() == 0 {
		return Match{}, false, nil
	}

	query, err := m.embedder.Embed(ctx, utterance)
	if err != nil {
		return Match{}, false, fmt.Errorf("embed utterance: %w", err)
	}

	items, err := m.items(ctx, kb.Questions())
	if err != nil {
		return Match{}, false, err
	}

	best, ok := m.index.Nearest(query, items)
	if !ok {
		return Match{}, false, nil
	}

	answer, _ := kb.Get(best.Key)
	match := Match{Question: best.Key, Answer: answer, Score: best.Score}
	found := best.Score > m.threshold

	zerolog.Ctx(ctx).Debug().
		Str("question", best.Key).
		Float64("score", best.Score).
		Float64("threshold", m.threshold).
		Bool("found", found).
		Msg("similarity lookup")

	return match, found, nil
}

// Rank scores every stored question against utterance, best first. Ties
// keep knowledge base order. Useful for inspecting why a match did or did
// not clear the threshold.
func (m *Matcher) Rank(ctx context.Context, utterance string, kb *knowledge.KnowledgeBase) ([]Match, error) {
	if kb == nil || kb.Len() == 0 {
		return nil, nil
	}

	query, err := m.embedder.Embed(ctx, utterance)
	if err != nil {
		return nil, fmt.Errorf("embed utterance: %w", err)
	}
	items, err := m.items(ctx, kb.Questions())
	if err != nil {
		return nil, err
	}

	ranked := make([]Match, len(items))
	for i, item := range items {
		answer, _ := kb.Get(item.Key)
		ranked[i] = Match{Question: item.Key, Answer: answer, Score: m.similarity(query, item.Vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// items returns embeddings for questions, computing only the ones not seen
// before.
func (m *Matcher) items(ctx context.Context, questions []string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]Item, len(questions))
	for i, q := range questions {
		vec, ok := m.memo[q]
		if !ok {
			var err error
			vec, err = m.embedder.Embed(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("embed question %q: %w", q, err)
			}
			m.memo[q] = vec
		}
		items[i] = Item{Key: q, Vector: vec}
	}
	return items, nil
}
