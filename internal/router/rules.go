package router

import "strings"

// Follow-up prompts for actions whose argument is asked for.
const (
	PromptYouTube   = "What do you want to watch on YouTube?"
	PromptGoogle    = "What do you want to search on Google?"
	PromptWikipedia = "What do you want to find on Wikipedia?"
)

// DefaultRules returns the built-in rule list in priority order.
//
// Matching is by substring, so "sometimes" triggers the time rule and
// "reopen" the website rule. Exit and stop are checked last, which means
// "stop the news" routes to news.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "time", Action: ActionTellTime, Match: ContainsAll("time")},
		{Name: "close tab", Action: ActionCloseTab, Match: ContainsAll("close tab")},
		{Name: "youtube", Action: ActionPlayYouTube, Match: ContainsAll("play", "youtube"), FollowUp: PromptYouTube},
		{Name: "google", Action: ActionGoogleSearch, Match: ContainsAll("search", "google"), FollowUp: PromptGoogle},
		{Name: "open", Action: ActionOpenWebsite, Match: ContainsAll("open"), Extract: After("open")},
		{Name: "news", Action: ActionGetNews, Match: ContainsAll("news"), Extract: After("get news from")},
		{Name: "joke", Action: ActionTellJoke, Match: ContainsAll("joke")},
		{Name: "wikipedia", Action: ActionWikipedia, Match: ContainsAll("wikipedia"), FollowUp: PromptWikipedia},
		{Name: "screenshot", Action: ActionScreenshot, Match: ContainsAll("screenshot")},
		{Name: "blink led", Action: ActionBlinkLED, Match: ContainsAll("blink led")},
		{Name: "speaker", Action: ActionSpeaker, Match: speakerSwitch, Extract: speakerState},
		{Name: "exit", Action: ActionShutdown, Match: ContainsAny("exit", "stop")},
	}
}

// ContainsAll matches when every fragment occurs in the utterance.
func ContainsAll(fragments ...string) func(string) bool {
	return func(utterance string) bool {
		for _, f := range fragments {
			if !strings.Contains(utterance, f) {
				return false
			}
		}
		return true
	}
}

// ContainsAny matches when at least one fragment occurs in the utterance.
func ContainsAny(fragments ...string) func(string) bool {
	return func(utterance string) bool {
		for _, f := range fragments {
			if strings.Contains(utterance, f) {
				return true
			}
		}
		return false
	}
}

// After returns the trimmed text following the last occurrence of anchor.
// When anchor is absent the whole utterance is returned, trimmed.
func After(anchor string) func(string) string {
	return func(utterance string) string {
		idx := strings.LastIndex(utterance, anchor)
		if idx < 0 {
			return strings.TrimSpace(utterance)
		}
		return strings.TrimSpace(utterance[idx+len(anchor):])
	}
}

// speakerSwitch matches "speaker on", "turn the speaker off", "on speaker"
// and the like: the word speaker plus a standalone on or off.
func speakerSwitch(utterance string) bool {
	return strings.Contains(utterance, "speaker") && speakerState(utterance) != ""
}

// speakerState returns "on" or "off", whichever appears first as a word.
func speakerState(utterance string) string {
	for _, w := range strings.Fields(utterance) {
		w = strings.Trim(w, ".,!?")
		if w == "on" || w == "off" {
			return w
		}
	}
	return ""
}
