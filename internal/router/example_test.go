package router_test

import (
	"fmt"

	"github.com/normanking/jarvis/internal/router"
)

func ExampleRouter_Resolve() {
	r := router.New()

	for _, utterance := range []string{
		"open youtube",
		"get news from bbc",
		"tell me a joke",
		"how do bees communicate",
	} {
		d, ok := r.Resolve(utterance)
		if !ok {
			fmt.Printf("%q -> no rule\n", utterance)
			continue
		}
		fmt.Printf("%q -> %s(%q)\n", utterance, d.Action, d.Argument)
	}

	// Output:
	// "open youtube" -> open_website("youtube")
	// "get news from bbc" -> get_news("bbc")
	// "tell me a joke" -> tell_joke("")
	// "how do bees communicate" -> no rule
}
