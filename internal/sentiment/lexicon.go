package sentiment

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// DefaultNegativeThreshold is the compound score magnitude at or beyond
// which text is labelled negative (or positive).
const DefaultNegativeThreshold = 0.25

// compoundAlpha is VADER's normalisation constant.
const compoundAlpha = 15.0

// idioms are distress phrases VADER scores as neutral or even positive
// ("i feel like nothing works out" reads "like" as approval). Their
// valences are added to VADER's raw sum. Earlier idioms win on overlap.
var idioms = []struct {
	phrase  string
	valence float64
}{
	{"nothing goes right", -4.0},
	{"nothing works out", -4.0},
	{"nothing works", -3.4},
	{"can't take it", -2.8},
	{"no one cares", -2.8},
	{"what's the point", -2.2},
	{"give up", -1.8},
	{"fed up", -2.0},
	{"sick of", -1.8},
	{"let down", -1.8},
}

var (
	analyzerOnce    sync.Once
	defaultAnalyzer *govader.SentimentIntensityAnalyzer
)

func sharedAnalyzer() *govader.SentimentIntensityAnalyzer {
	analyzerOnce.Do(func() {
		defaultAnalyzer = govader.NewSentimentIntensityAnalyzer()
	})
	return defaultAnalyzer
}

// LexiconClassifier labels text from its VADER compound score, adjusted for
// a handful of distress idioms.
type LexiconClassifier struct {
	threshold float64
	analyzer  *govader.SentimentIntensityAnalyzer
}

// NewLexiconClassifier creates a classifier. Thresholds outside (0, 1) fall
// back to DefaultNegativeThreshold.
func NewLexiconClassifier(threshold float64) *LexiconClassifier {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultNegativeThreshold
	}
	return &LexiconClassifier{threshold: threshold, analyzer: sharedAnalyzer()}
}

// Classify never returns an error.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	score := compound(c.analyzer, text)

	v := Verdict{Label: Neutral, Score: score}
	switch {
	case score <= -c.threshold:
		v.Label = Negative
	case score >= c.threshold:
		v.Label = Positive
	}

	if v.Label == Neutral {
		v.Confidence = 1 - math.Abs(score)/c.threshold
	} else {
		v.Confidence = math.Abs(score)
	}
	return v, nil
}

// Compound scores text in (-1, 1). Zero means no sentiment-bearing words.
func Compound(text string) float64 {
	return compound(sharedAnalyzer(), text)
}

func compound(analyzer *govader.SentimentIntensityAnalyzer, text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	score := analyzer.PolarityScores(text).Compound
	adjust := idiomValence(text)
	if adjust == 0 {
		return score
	}
	return normalize(raw(score) + adjust)
}

// idiomValence sums the valences of idioms found in text. A word belongs to
// at most one idiom.
func idiomValence(text string) float64 {
	tokens := strings.Fields(strings.NewReplacer("’", "'", ",", " ", ".", " ", "!", " ", "?", " ").
		Replace(strings.ToLower(text)))
	consumed := make([]bool, len(tokens))

	var sum float64
	for _, idiom := range idioms {
		parts := strings.Fields(idiom.phrase)
		for i := 0; i+len(parts) <= len(tokens); i++ {
			if !matchAt(tokens, consumed, i, parts) {
				continue
			}
			for j := i; j < i+len(parts); j++ {
				consumed[j] = true
			}
			sum += idiom.valence
		}
	}
	return sum
}

func matchAt(tokens []string, consumed []bool, i int, parts []string) bool {
	for j, p := range parts {
		if consumed[i+j] || tokens[i+j] != p {
			return false
		}
	}
	return true
}

// raw inverts VADER's normalisation x / sqrt(x*x + alpha).
func raw(score float64) float64 {
	score = math.Max(-0.9999, math.Min(0.9999, score))
	return score * math.Sqrt(compoundAlpha/(1-score*score))
}

func normalize(sum float64) float64 {
	return sum / math.Sqrt(sum*sum+compoundAlpha)
}
