package sentiment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReassurances are spoken when an utterance reads as negative.
var DefaultReassurances = []string{
	"Disappointment is just a reminder that things can always get better.",
	"Failure is not the opposite of success; it's part of success.",
	"Every setback is a setup for a comeback.",
	"In the middle of every difficulty lies opportunity.",
}

// Gate runs the classifier and picks a reassurance for negative input.
type Gate struct {
	classifier   Classifier
	reassurances []string

	mu  sync.Mutex
	rng *rand.Rand
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithReassurances replaces the reassurance pool. An empty pool is ignored.
func WithReassurances(pool []string) GateOption {
	return func(g *Gate) {
		if len(pool) > 0 {
			g.reassurances = append([]string(nil), pool...)
		}
	}
}

// WithRand sets the random source used to pick reassurances.
func WithRand(rng *rand.Rand) GateOption {
	return func(g *Gate) {
		g.rng = rng
	}
}

// NewGate creates a gate around classifier.
func NewGate(classifier Classifier, opts ...GateOption) *Gate {
	g := &Gate{
		classifier:   classifier,
		reassurances: DefaultReassurances,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check classifies utterance. When it is negative, reply holds a
// reassurance chosen uniformly at random and negative is true. A classifier
// error is logged and treated as neutral.
func (g *Gate) Check(ctx context.Context, utterance string) (reply string, negative bool, verdict Verdict) {
	logger := zerolog.Ctx(ctx)

	verdict, err := g.classifier.Classify(ctx, utterance)
	if err != nil {
		logger.Warn().Err(err).Str("utterance", utterance).Msg("sentiment classification failed, treating as neutral")
		return "", false, Verdict{Label: Neutral}
	}

	logger.Debug().
		Str("label", string(verdict.Label)).
		Float64("score", verdict.Score).
		Float64("confidence", verdict.Confidence).
		Msg("sentiment verdict")

	if verdict.Label != Negative {
		return "", false, verdict
	}
	return g.pick(), true, verdict
}

// Reassurances returns a copy of the pool.
func (g *Gate) Reassurances() []string {
	return append([]string(nil), g.reassurances...)
}

func (g *Gate) pick() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reassurances[g.rng.Intn(len(g.reassurances))]
}
