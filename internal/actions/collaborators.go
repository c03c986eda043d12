package actions

import (
	"context"
	"time"
)

// Browser opens URLs.
type Browser interface {
	Open(ctx context.Context, url string) error
}

// Encyclopedia returns a short plain-text summary of a topic.
type Encyclopedia interface {
	Summary(ctx context.Context, topic string, sentences int) (string, error)
}

// Desktop drives the local desktop session.
type Desktop interface {
	Screenshot(ctx context.Context, path string) error
	CloseTab(ctx context.Context) error
}

// Hardware drives the serial-attached LED and speaker relay.
type Hardware interface {
	Blink(ctx context.Context, times int, delay time.Duration) error
	SetSpeaker(ctx context.Context, on bool) error
}
