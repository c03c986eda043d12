package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/normanking/jarvis/internal/voice"
	"github.com/rs/zerolog/log"
)

// retryListenDelay is the pause after a listener failure before polling again.
const retryListenDelay = time.Second

// Greeting returns the time-of-day greeting for t.
func Greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good Morning!"
	case hour < 18:
		return "Good Afternoon!"
	default:
		return "Good Evening!"
	}
}

// Greet speaks the time-of-day greeting.
func (a *Assistant) Greet(ctx context.Context) {
	a.say(ctx, nil, Greeting(a.now()))
}

// Run greets (when enabled) and then listens and resolves utterances until
// the user says exit or stop, the listener is closed, or ctx is cancelled.
// Nothing heard is answered with a short apology and polled again.
// Recognition errors are logged and retried; they never end the session.
func (a *Assistant) Run(ctx context.Context) error {
	if a.greet {
		a.Greet(ctx)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, ok, err := a.listener.Listen(ctx)
		switch {
		case errors.Is(err, voice.ErrClosed):
			log.Info().Msg("input closed, ending session")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warn().Err(err).Msg("listen failed")
			a.say(ctx, nil, ReplyConnection)
			if err := pause(ctx, retryListenDelay); err != nil {
				return err
			}
			continue
		case !ok:
			a.say(ctx, nil, ReplyDidNotCatch)
			continue
		}

		res, err := a.HandleUtterance(ctx, text)
		if err != nil {
			if errors.Is(err, voice.ErrClosed) {
				log.Info().Msg("input closed, ending session")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("turn_id", res.TurnID).Msg("turn ended early")
		}
		if res.State == StateShutdown {
			return nil
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
