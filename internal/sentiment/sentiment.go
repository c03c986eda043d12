// Package sentiment decides whether an utterance is negative enough to
// deserve a reassurance instead of an answer.
package sentiment

import "context"

// Label is the polarity of a piece of text.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Verdict is the result of classifying a text.
type Verdict struct {
	Label Label
	// Confidence is in [0, 1].
	Confidence float64
	// Score is the raw compound polarity in [-1, 1], when the classifier has one.
	Score float64
}

// Classifier assigns a sentiment label to text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Verdict, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Verdict, error) {
	return f(ctx, text)
}
