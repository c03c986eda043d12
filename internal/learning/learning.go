// Package learning asks the user for the answer to a question the assistant
// could not answer and commits it to the knowledge store.
package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/normanking/jarvis/internal/logging"
	"github.com/normanking/jarvis/internal/voice"
	"github.com/rs/zerolog"
)

// Prompts spoken by the flow.
const (
	PromptAnswer   = "What's the answer?"
	ReplyCommitted = "Got it! I've noted that down."
	ReplyFailed    = "Sorry, I couldn't save that. Please try again later."
)

// Outcome is how a learning attempt ended.
type Outcome string

const (
	// OutcomeCommitted means the answer was stored durably.
	OutcomeCommitted Outcome = "committed"
	// OutcomeNotCaptured means no answer was heard; nothing changed.
	OutcomeNotCaptured Outcome = "not_captured"
	// OutcomeFailed means an answer was heard but could not be stored.
	OutcomeFailed Outcome = "failed"
)

// Adder stores a question and its answer durably.
type Adder interface {
	Add(ctx context.Context, question, answer string) error
}

// Flow runs the prompt, capture, commit and confirm sequence.
type Flow struct {
	store    Adder
	speaker  voice.Speaker
	listener voice.Listener

	commitTimeout time.Duration
}

// Option configures a Flow.
type Option func(*Flow)

// WithCommitTimeout bounds the store write. The write runs on a context
// detached from the turn so cancelling the turn cannot lose an answer the
// user already gave.
func WithCommitTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.commitTimeout = d
		}
	}
}

// New creates a learning flow.
func New(store Adder, speaker voice.Speaker, listener voice.Listener, opts ...Option) *Flow {
	f := &Flow{
		store:         store,
		speaker:       speaker,
		listener:      listener,
		commitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Learn asks for the answer to question and stores it keyed by question.
//
// Nothing heard yields OutcomeNotCaptured with a nil error. A listener error
// yields OutcomeNotCaptured with that error, so callers can notice a closed
// source. A store failure is apologised for and yields OutcomeFailed.
func (f *Flow) Learn(ctx context.Context, question string) (Outcome, error) {
	logger := zerolog.Ctx(ctx)

	f.say(ctx, PromptAnswer)

	answer, ok, err := f.listener.Listen(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("question", question).Msg("learning: answer capture failed")
		return OutcomeNotCaptured, fmt.Errorf("capture answer: %w", err)
	}
	if !ok || answer == "" {
		logger.Info().Str("question", question).Msg("learning: no answer captured")
		return OutcomeNotCaptured, nil
	}

	commitCtx, cancel := logging.DetachContextWithTimeout(ctx, f.commitTimeout)
	defer cancel()

	if err := f.store.Add(commitCtx, question, answer); err != nil {
		logger.Error().Err(err).Str("question", question).Msg("learning: failed to store answer")
		f.say(ctx, ReplyFailed)
		return OutcomeFailed, err
	}

	logger.Info().Str("question", question).Str("answer", answer).Msg("learning: answer stored")
	f.say(ctx, ReplyCommitted)
	return OutcomeCommitted, nil
}

func (f *Flow) say(ctx context.Context, text string) {
	if err := f.speaker.Speak(ctx, text); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("text", text).Msg("speak failed")
	}
}
