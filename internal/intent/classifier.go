// Package intent labels an inbound message with one pragmatic category by
// walking an ordered rule list. The first matching rule wins.
package intent

import "strings"

// Intent is the label attached to a message.
type Intent string

const (
	Boundary   Intent = "boundary"
	Aggressive Intent = "aggressive"
	Sexual     Intent = "sexual"
	Compliment Intent = "compliment"
	Smalltalk  Intent = "smalltalk"
	Repetition Intent = "repetition"
	Question   Intent = "question"
	Fallback   Intent = "fallback"
)

// All lists every intent in priority order, fallback last.
var All = []Intent{Boundary, Aggressive, Sexual, Repetition, Smalltalk, Compliment, Question, Fallback}

const (
	DefaultContextTurns = 6

	fallbackConfidence = 0.40
	emptyConfidence    = 0.20
)

// Result is produced fresh for each Classify call.
type Result struct {
	Intent      Intent   `json:"intent"`
	Confidence  float64  `json:"confidence"`
	MatchedKeys []string `json:"matchedKeys"`
	Rule        string   `json:"rule,omitempty"`
}

// Options configures a Classifier.
type Options struct {
	// ContextTurns bounds how many trailing entries of the recent window are inspected.
	ContextTurns int
	// Rules overrides DefaultRules.
	Rules []Rule
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	contextTurns int
	rules        []Rule
}

// New creates a Classifier. Zero options select the defaults.
func New(opts Options) *Classifier {
	c := &Classifier{contextTurns: opts.ContextTurns, rules: opts.Rules}
	if c.contextTurns <= 0 {
		c.contextTurns = DefaultContextTurns
	}
	if len(c.rules) == 0 {
		c.rules = DefaultRules()
	}
	return c
}

// Classify labels text. recent holds prior message texts, oldest first; only
// the last ContextTurns entries are used.
func (c *Classifier) Classify(text string, recent []string) Result {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Result{Intent: Fallback, Confidence: emptyConfidence, MatchedKeys: []string{}}
	}

	window := recent
	if len(window) > c.contextTurns {
		window = window[len(window)-c.contextTurns:]
	}
	lowered := make([]string, 0, len(window))
	for _, w := range window {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}

	for _, r := range c.rules {
		if keys := r.matches(t, lowered); len(keys) > 0 {
			return Result{Intent: r.Intent, Confidence: r.Confidence, MatchedKeys: keys, Rule: r.Name}
		}
	}
	return Result{Intent: Fallback, Confidence: fallbackConfidence, MatchedKeys: []string{}}
}

func (r Rule) matches(text string, window []string) []string {
	var keys []string
	for _, p := range r.Patterns {
		if r.patternFires(p, text, window) {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func (r Rule) patternFires(p Pattern, text string, window []string) bool {
	if r.Scope != ScopeContext && p.match(text) {
		return true
	}
	if r.Scope == ScopeText {
		return false
	}
	for _, w := range window {
		if p.match(w) {
			return true
		}
	}
	return false
}
