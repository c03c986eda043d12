// Package router maps an utterance to a built-in action using an ordered
// list of keyword rules. The first rule whose predicate matches wins.
package router

// Action identifies a built-in command.
type Action string

const (
	// ActionTellTime speaks the current time.
	ActionTellTime Action = "tell_time"
	// ActionCloseTab closes the active browser tab.
	ActionCloseTab Action = "close_tab"
	// ActionPlayYouTube plays a follow-up query on YouTube.
	ActionPlayYouTube Action = "play_youtube"
	// ActionGoogleSearch searches Google for a follow-up query.
	ActionGoogleSearch Action = "google_search"
	// ActionOpenWebsite opens a known website by name.
	ActionOpenWebsite Action = "open_website"
	// ActionGetNews opens a known news source.
	ActionGetNews Action = "get_news"
	// ActionTellJoke tells a joke.
	ActionTellJoke Action = "tell_joke"
	// ActionWikipedia reads a short encyclopedia summary of a follow-up query.
	ActionWikipedia Action = "wikipedia"
	// ActionScreenshot captures the screen.
	ActionScreenshot Action = "screenshot"
	// ActionBlinkLED blinks the attached LED.
	ActionBlinkLED Action = "blink_led"
	// ActionSpeaker switches the attached speaker on or off.
	ActionSpeaker Action = "speaker"
	// ActionShutdown ends the session. It is terminal and never dispatched
	// to an executor.
	ActionShutdown Action = "shutdown"
)

// AllActions returns every dispatchable action.
func AllActions() []Action {
	return []Action{
		ActionTellTime,
		ActionCloseTab,
		ActionPlayYouTube,
		ActionGoogleSearch,
		ActionOpenWebsite,
		ActionGetNews,
		ActionTellJoke,
		ActionWikipedia,
		ActionScreenshot,
		ActionBlinkLED,
		ActionSpeaker,
	}
}

// String returns the string representation of an Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if an Action is a known dispatchable action.
func (a Action) IsValid() bool {
	for _, valid := range AllActions() {
		if a == valid {
			return true
		}
	}
	return false
}

// Rule is one entry of the ordered rule list. Rules are immutable after
// construction.
type Rule struct {
	// Name is a short label for logs and stats.
	Name string

	// Action is dispatched when Match reports true.
	Action Action

	// Match tests the lower-cased, trimmed utterance.
	Match func(utterance string) bool

	// Extract derives the action argument from the utterance. Nil means no
	// argument.
	Extract func(utterance string) string

	// FollowUp, when set, is a question the assistant asks to obtain the
	// argument instead of extracting it.
	FollowUp string
}

// Decision is the outcome of routing an utterance.
type Decision struct {
	Rule     string
	Action   Action
	Argument string
	FollowUp string
	Input    string
}

// Terminal reports whether the decision ends the session.
func (d *Decision) Terminal() bool {
	return d != nil && d.Action == ActionShutdown
}

// Stats tracks routing statistics.
type Stats struct {
	// TotalRequests is the number of utterances routed.
	TotalRequests int64 `json:"total_requests"`

	// Matched is the number of utterances that hit a rule.
	Matched int64 `json:"matched"`

	// Unmatched is the number of utterances that fell through.
	Unmatched int64 `json:"unmatched"`

	// ActionDistribution tracks how often each action is selected.
	ActionDistribution map[Action]int64 `json:"action_distribution"`
}

// MatchRatio returns the percentage of utterances that hit a rule.
func (s *Stats) MatchRatio() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.TotalRequests) * 100
}
