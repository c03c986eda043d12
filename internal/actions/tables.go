package actions

import (
	"net/url"
	"sort"
)

// Websites are the sites "open <name>" understands.
var Websites = map[string]string{
	"google":   "https://www.google.com",
	"youtube":  "https://www.youtube.com",
	"whatsapp": "https://web.whatsapp.com",
	"viber":    "https://www.viber.com",
	"bbc":      "https://www.bbc.com",
}

// NewsSources are the outlets "get news from <name>" understands.
var NewsSources = map[string]string{
	"bbc":          "https://www.bbc.com/news",
	"cnn":          "https://www.cnn.com/",
	"reuters":      "https://www.reuters.com/",
	"al jazeera":   "https://www.aljazeera.com/",
	"the guardian": "https://www.theguardian.com/",
	"fox news":     "https://www.foxnews.com/",
	"nbc news":     "https://www.nbcnews.com/",
}

// Jokes is the built-in joke list.
var Jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"There are only 10 kinds of people in this world: those who know binary and those who don't.",
	"A SQL query walks into a bar, walks up to two tables and asks, can I join you?",
	"Why did the developer go broke? Because he used up all his cache.",
	"How many programmers does it take to change a light bulb? None, that's a hardware problem.",
	"I would tell you a UDP joke, but you might not get it.",
	"Debugging is like being the detective in a crime movie where you are also the murderer.",
	"Why do Java developers wear glasses? Because they don't C sharp.",
}

// YouTubeSearchURL returns the results page for query.
func YouTubeSearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
}

// GoogleSearchURL returns the search page for query.
func GoogleSearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// names returns the sorted keys of a table, for help text.
func names(table map[string]string) []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
