package router

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Router resolves utterances against an ordered rule list.
type Router struct {
	rules []Rule

	stats Stats
	mu    sync.RWMutex
}

// Option is a functional option for configuring a Router.
type Option func(*Router)

// WithRules replaces the default rule list.
func WithRules(rules []Rule) Option {
	return func(r *Router) {
		r.rules = append([]Rule(nil), rules...)
	}
}

// WithExitWords replaces the words that end the session. The shutdown rule
// keeps its place at the end of the list.
func WithExitWords(words ...string) Option {
	return func(r *Router) {
		if len(words) == 0 {
			return
		}
		for i := range r.rules {
			if r.rules[i].Action == ActionShutdown {
				r.rules[i].Match = ContainsAny(words...)
			}
		}
	}
}

// New creates a router with DefaultRules unless overridden.
func New(opts ...Option) *Router {
	r := &Router{
		rules: DefaultRules(),
		stats: Stats{
			ActionDistribution: make(map[Action]int64),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the decision of the first matching rule. ok is false when
// no rule matches and the utterance should fall through to the knowledge
// path. The utterance is lower-cased and trimmed first.
func (r *Router) Resolve(utterance string) (*Decision, bool) {
	input := strings.ToLower(strings.TrimSpace(utterance))

	for _, rule := range r.rules {
		if rule.Match == nil || !rule.Match(input) {
			continue
		}

		d := &Decision{
			Rule:     rule.Name,
			Action:   rule.Action,
			FollowUp: rule.FollowUp,
			Input:    input,
		}
		if rule.Extract != nil {
			d.Argument = rule.Extract(input)
		}

		r.record(d.Action, true)
		log.Debug().Str("rule", rule.Name).Str("action", string(d.Action)).Str("argument", d.Argument).Msg("intent matched")
		return d, true
	}

	r.record("", false)
	return nil, false
}

// Rules returns a copy of the rule list.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Stats returns a copy of the routing statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dist := make(map[Action]int64, len(r.stats.ActionDistribution))
	for k, v := range r.stats.ActionDistribution {
		dist[k] = v
	}
	s := r.stats
	s.ActionDistribution = dist
	return s
}

// ResetStats clears all routing statistics.
func (r *Router) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = Stats{ActionDistribution: make(map[Action]int64)}
}

func (r *Router) record(action Action, matched bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalRequests++
	if matched {
		r.stats.Matched++
		r.stats.ActionDistribution[action]++
	} else {
		r.stats.Unmatched++
	}
}
