package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/normanking/jarvis/internal/actions"
	"github.com/normanking/jarvis/internal/learning"
	"github.com/normanking/jarvis/internal/metrics"
	"github.com/normanking/jarvis/internal/router"
	"github.com/normanking/jarvis/internal/sentiment"
	"github.com/normanking/jarvis/internal/voice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config wires the resolver's collaborators. Store, Matcher, Speaker and
// Listener are required; the rest have defaults.
type Config struct {
	Store    Store
	Matcher  Matcher
	Speaker  voice.Speaker
	Listener voice.Listener

	Router  *router.Router    // default router.New()
	Gate    *sentiment.Gate   // default lexicon classifier
	Actions Dispatcher        // default actions.NewDefaultRegistry with no collaborators
	Learner Learner           // default learning.New over Store, Speaker, Listener
	Metrics *metrics.Recorder // nil records nothing

	// LearnOnMiss runs the learning flow when nothing answers. When false
	// the assistant says it does not know.
	LearnOnMiss bool

	// Greet enables the time-of-day greeting in Run.
	Greet bool

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Assistant is the per-utterance resolver and the listen loop around it.
// It handles one utterance at a time.
type Assistant struct {
	store    Store
	matcher  Matcher
	speaker  voice.Speaker
	listener voice.Listener
	router   *router.Router
	gate     *sentiment.Gate
	actions  Dispatcher
	learner  Learner
	metrics  *metrics.Recorder

	learnOnMiss bool
	greet       bool
	now         func() time.Time
}

// New creates an assistant.
func New(cfg Config) (*Assistant, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("assistant: store is required")
	case cfg.Matcher == nil:
		return nil, errors.New("assistant: matcher is required")
	case cfg.Speaker == nil || cfg.Listener == nil:
		return nil, errors.New("assistant: speaker and listener are required")
	}

	a := &Assistant{
		store:       cfg.Store,
		matcher:     cfg.Matcher,
		speaker:     cfg.Speaker,
		listener:    cfg.Listener,
		router:      cfg.Router,
		gate:        cfg.Gate,
		actions:     cfg.Actions,
		learner:     cfg.Learner,
		metrics:     cfg.Metrics,
		learnOnMiss: cfg.LearnOnMiss,
		greet:       cfg.Greet,
		now:         cfg.Now,
	}
	if a.router == nil {
		a.router = router.New()
	}
	if a.gate == nil {
		a.gate = sentiment.NewGate(sentiment.NewLexiconClassifier(sentiment.DefaultNegativeThreshold))
	}
	if a.actions == nil {
		a.actions = actions.NewDefaultRegistry(actions.Deps{})
	}
	if a.learner == nil {
		a.learner = learning.New(cfg.Store, cfg.Speaker, cfg.Listener)
	}
	if a.now == nil {
		a.now = time.Now
	}

	a.metrics.SetKnowledgeSize(a.store.Len())
	return a, nil
}

// Router returns the intent router, for stats.
func (a *Assistant) Router() *router.Router { return a.router }

// HandleUtterance resolves one utterance and speaks the outcome.
//
// The router runs first; exit and stop end the session. An unmatched
// utterance goes through the sentiment gate, then the knowledge lookup,
// then the learning flow. The returned error is non-nil only when the
// listener failed during a follow-up question; action and store failures
// are reported in Result.Err and never abort the session.
func (a *Assistant) HandleUtterance(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	turnID := uuid.NewString()

	logger := log.With().Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	res := Result{TurnID: turnID, Input: voice.Normalize(text)}
	err := a.resolve(ctx, &res)

	logger.Info().
		Str("utterance", res.Input).
		Str("state", string(res.State)).
		Str("action", string(res.Action)).
		Dur("elapsed", time.Since(start)).
		Msg("turn resolved")
	a.metrics.Turn(string(res.State), time.Since(start))

	return res, err
}

func (a *Assistant) resolve(ctx context.Context, res *Result) error {
	if res.Input == "" {
		res.State = StateIdle
		return nil
	}

	if decision, ok := a.router.Resolve(res.Input); ok {
		if decision.Terminal() {
			res.State = StateShutdown
			a.say(ctx, res, ReplyGoodbye)
			return nil
		}
		return a.dispatch(ctx, res, decision)
	}

	reply, negative, verdict := a.gate.Check(ctx, res.Input)
	res.Sentiment = &verdict
	if negative {
		res.State = StateMoodReply
		a.say(ctx, res, reply)
		return nil
	}

	kb := a.store.Snapshot()
	match, found, err := a.matcher.FindBestMatch(ctx, res.Input, kb)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("utterance", res.Input).Msg("knowledge lookup failed, treating as a miss")
	} else if kb.Len() > 0 {
		res.Match = &match
		a.metrics.Lookup(match.Score)
	}
	if found {
		res.State = StateRespond
		a.say(ctx, res, match.Answer)
		return nil
	}

	return a.learn(ctx, res)
}

func (a *Assistant) dispatch(ctx context.Context, res *Result, d *router.Decision) error {
	logger := zerolog.Ctx(ctx)

	res.State = StateActionDispatch
	res.Action = d.Action
	res.Argument = d.Argument

	if d.FollowUp != "" {
		a.say(ctx, res, d.FollowUp)
		arg, ok, err := a.listener.Listen(ctx)
		if err != nil {
			return fmt.Errorf("follow-up for %s: %w", d.Action, err)
		}
		if !ok {
			logger.Info().Str("action", string(d.Action)).Msg("no follow-up heard, action skipped")
			return nil
		}
		res.Argument = arg
	}

	reply, err := a.actions.Execute(ctx, d.Action, res.Argument)
	a.metrics.Action(string(d.Action), err != nil)
	if err != nil {
		res.Err = err
		logger.Error().Err(err).
			Str("utterance", res.Input).
			Str("action", string(d.Action)).
			Str("argument", res.Argument).
			Msg("action failed")

		var failure *actions.FailureError
		if errors.As(err, &failure) && failure.Reply != "" {
			reply = failure.Reply
		} else {
			reply = ReplyActionFailed
		}
	}

	if reply != "" {
		a.say(ctx, res, reply)
	}
	return nil
}

func (a *Assistant) learn(ctx context.Context, res *Result) error {
	if !a.learnOnMiss {
		res.State = StateIdle
		a.say(ctx, res, ReplyUnknownAnswer)
		return nil
	}

	outcome, err := a.learner.Learn(ctx, res.Input)
	res.Learning = outcome
	a.metrics.Learned(string(outcome))

	switch outcome {
	case learning.OutcomeCommitted:
		res.State = StateCommit
		res.Reply = learning.ReplyCommitted
		a.metrics.SetKnowledgeSize(a.store.Len())
		return nil
	case learning.OutcomeFailed:
		res.State = StateCommit
		res.Reply = learning.ReplyFailed
		res.Err = err
		return nil
	default:
		res.State = StateIdle
		return err
	}
}

// say speaks text and records it as the turn's reply. Speech failures are
// logged and otherwise ignored.
func (a *Assistant) say(ctx context.Context, res *Result, text string) {
	if res != nil {
		res.Reply = text
	}
	if err := a.speaker.Speak(ctx, text); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("text", text).Msg("speak failed")
	}
}
