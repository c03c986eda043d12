// Package assistant resolves each utterance to exactly one outcome: a
// built-in action, a reassurance, a learned answer or a learning prompt.
package assistant

import (
	"context"

	"github.com/normanking/jarvis/internal/knowledge"
	"github.com/normanking/jarvis/internal/learning"
	"github.com/normanking/jarvis/internal/router"
	"github.com/normanking/jarvis/internal/sentiment"
	"github.com/normanking/jarvis/internal/similarity"
)

// State is the terminal state of one turn.
type State string

const (
	// StateShutdown ends the session.
	StateShutdown State = "shutdown"
	// StateActionDispatch ran a built-in action.
	StateActionDispatch State = "action_dispatch"
	// StateMoodReply answered negative input with a reassurance.
	StateMoodReply State = "mood_reply"
	// StateRespond answered from the knowledge base.
	StateRespond State = "respond"
	// StateCommit captured a new answer (see Result.Learning for whether it was stored).
	StateCommit State = "commit"
	// StateIdle did nothing: empty input, or no answer was captured.
	StateIdle State = "idle"
)

// Replies spoken by the resolver itself.
const (
	ReplyGoodbye       = "See you later!"
	ReplyDidNotCatch   = "Sorry, I didn't catch that. Can you say it again?"
	ReplyConnection    = "Oops! There seems to be a connection issue."
	ReplyActionFailed  = "Sorry, something went wrong with that."
	ReplyUnknownAnswer = "I don't know that yet."
)

// Result describes how a turn was resolved.
type Result struct {
	TurnID string
	Input  string
	State  State

	// Action and Argument are set for StateActionDispatch.
	Action   router.Action
	Argument string

	// Reply is the last thing spoken for this turn, if any.
	Reply string

	// Match is the best knowledge candidate when a lookup ran.
	Match *similarity.Match

	// Sentiment is set when the sentiment gate ran.
	Sentiment *sentiment.Verdict

	// Learning is set when the learning flow ran.
	Learning learning.Outcome

	// Err is a non-fatal failure inside the turn (action or store error).
	Err error
}

// Store is the knowledge the resolver reads and the learning flow writes.
type Store interface {
	learning.Adder
	Snapshot() *knowledge.KnowledgeBase
	Len() int
}

// Matcher finds the best stored question for an utterance.
type Matcher interface {
	FindBestMatch(ctx context.Context, utterance string, kb *knowledge.KnowledgeBase) (similarity.Match, bool, error)
}

// Learner runs the learning flow.
type Learner interface {
	Learn(ctx context.Context, question string) (learning.Outcome, error)
}

// Dispatcher executes built-in actions.
type Dispatcher interface {
	Execute(ctx context.Context, action router.Action, arg string) (string, error)
}
