// Package templates picks pre-authored reply bodies by intent and composes
// template-only drafts.
package templates

import (
	"math/rand/v2"
	"sync"

	"github.com/stellarlinkco/replypilot/internal/intent"
)

// Pack is a set of reply pools. Intents without a pool use Generic.
type Pack struct {
	Generic []string                   `yaml:"generic" json:"generic"`
	Intents map[intent.Intent][]string `yaml:"intents" json:"intents"`
}

// Options configures a Selector.
type Options struct {
	Pack Pack
	// IntN returns a uniform int in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

// Selector is safe for concurrent use; pools may be swapped while picks run.
type Selector struct {
	mu   sync.RWMutex
	pack Pack
	intn func(n int) int
}

// New creates a Selector. An empty Pack selects DefaultPack.
func New(opts Options) *Selector {
	s := &Selector{intn: opts.IntN}
	if s.intn == nil {
		s.intn = rand.IntN
	}
	if len(opts.Pack.Generic) == 0 && len(opts.Pack.Intents) == 0 {
		opts.Pack = DefaultPack()
	}
	s.Replace(opts.Pack)
	return s
}

// Pick returns one body for in, chosen uniformly with replacement. The
// second argument is a hint that is currently ignored.
func (s *Selector) Pick(in intent.Intent, _ string) string {
	s.mu.RLock()
	pool, ok := s.pack.Intents[in]
	if !ok || len(pool) == 0 {
		pool = s.pack.Generic
	}
	s.mu.RUnlock()
	if len(pool) == 0 {
		return ""
	}
	return pool[s.intn(len(pool))]
}

// Replace swaps in p. Missing pools fall back to the built-in ones so a
// partial pack never leaves an intent without bodies.
func (s *Selector) Replace(p Pack) {
	merged := DefaultPack()
	if len(p.Generic) > 0 {
		merged.Generic = append([]string(nil), p.Generic...)
	}
	for k, v := range p.Intents {
		if len(v) > 0 {
			merged.Intents[k] = append([]string(nil), v...)
		}
	}
	s.mu.Lock()
	s.pack = merged
	s.mu.Unlock()
}

// Pool returns a copy of the pool used for in.
func (s *Selector) Pool(in intent.Intent) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pack.Intents[in]
	if !ok || len(pool) == 0 {
		pool = s.pack.Generic
	}
	return append([]string(nil), pool...)
}
