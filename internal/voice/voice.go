// Package voice adapts utterance sources and speech sinks to the assistant.
//
// Speech recognition and synthesis live outside this module. The Console
// reads typed input and prints replies; the Bridge exchanges JSON frames
// with an external voice orchestrator over a WebSocket.
package voice

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned by Listen once the source is exhausted or closed.
var ErrClosed = errors.New("voice: source closed")

// Speaker delivers a reply to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Listener captures one utterance. ok is false when nothing intelligible was
// heard; the caller may simply listen again.
type Listener interface {
	Listen(ctx context.Context) (text string, ok bool, err error)
}

// IO is both ends of a conversation.
type IO interface {
	Speaker
	Listener
}

// fillers are dropped from the start of an utterance.
var fillers = map[string]bool{
	"um": true, "uh": true, "erm": true, "hmm": true,
}

// wakeWords are dropped when they open an utterance.
var wakeWords = []string{"hey jarvis", "ok jarvis", "okay jarvis", "jarvis"}

// Normalize lower-cases text, collapses whitespace and drops leading
// fillers and a leading wake word.
func Normalize(text string) string {
	words := strings.Fields(strings.ToLower(text))

	for len(words) > 0 && fillers[strings.Trim(words[0], ",.")] {
		words = words[1:]
	}

	joined := strings.Join(words, " ")
	for _, wake := range wakeWords {
		if rest, ok := strings.CutPrefix(joined, wake); ok && (rest == "" || rest[0] == ' ' || rest[0] == ',') {
			joined = strings.TrimSpace(strings.TrimLeft(rest, ","))
			break
		}
	}
	return joined
}
