// Package policy rewrites generated reply text until it satisfies the
// content and formatting rules of the chat persona.
package policy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMaxLength = 500
	DefaultMaxPasses = 3
)

// Flag names reported in Result.Flags.
const (
	FlagIncestBlock   = "incest_block"
	FlagHasMeetup     = "has_meetup"
	FlagHasContacts   = "has_contacts"
	FlagDashRemoved   = "dash_removed"
	FlagUsedDuForm    = "used_du_form"
	FlagHasLink       = "has_link"
	FlagHadFarewell   = "had_farewell"
	FlagTooLong       = "too_long"
	FlagEmptyFallback = "empty_fallback"
)

// Flags maps a rule name to whether it fired in any pass.
type Flags map[string]bool

// Fired returns the names of the rules that fired, sorted.
func (f Flags) Fired() []string {
	names := make([]string, 0, len(f))
	for k, v := range f {
		if v {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func (f Flags) set(name string, fired bool) {
	if fired {
		f[name] = true
	}
}

// Result of one Enforce call. Text is empty only when Blocked is true.
type Result struct {
	Text    string `json:"text"`
	Flags   Flags  `json:"flags"`
	Passes  int    `json:"passes"`
	Blocked bool   `json:"blocked"`
}

// Options configures a Filter.
type Options struct {
	MaxLength int
	MaxPasses int
}

// Filter is stateless and safe for concurrent use.
type Filter struct {
	maxLength int
	maxPasses int
}

// New creates a Filter. Zero values select the defaults. A MaxLength below
// the length of EmptyFallback is raised to it.
func New(opts Options) *Filter {
	f := &Filter{maxLength: opts.MaxLength, maxPasses: opts.MaxPasses}
	if f.maxLength <= 0 {
		f.maxLength = DefaultMaxLength
	}
	f.maxLength = max(f.maxLength, utf8.RuneCountInString(EmptyFallback))
	if f.maxPasses <= 0 {
		f.maxPasses = DefaultMaxPasses
	}
	return f
}

// MaxLength returns the rune cap applied to every output.
func (f *Filter) MaxLength() int { return f.maxLength }

// Enforce applies the rule passes to raw until no dash or sharp s remains or
// the pass cap is reached. Flags accumulate across passes.
func (f *Filter) Enforce(raw string) Result {
	res := Result{Text: raw, Flags: Flags{}}
	for res.Passes < f.maxPasses {
		res.Passes++
		var blocked bool
		res.Text, blocked = f.pass(res.Text, res.Flags)
		if blocked {
			res.Blocked = true
			return res
		}
		if !violated(res.Text) {
			break
		}
	}
	return res
}

func (f *Filter) pass(text string, flags Flags) (string, bool) {
	lower := strings.ToLower(text)
	if hardBlocked(lower) {
		flags.set(FlagIncestBlock, true)
		return "", true
	}

	if hasMeetup(lower) {
		flags.set(FlagHasMeetup, true)
		text = MeetupDecline
	} else if hasContact(lower) {
		flags.set(FlagHasContacts, true)
		text = ContactDecline
	}

	text = normalizeSharpS(text)

	undashed := dashRe.ReplaceAllString(text, " ")
	flags.set(FlagDashRemoved, undashed != text)
	text = undashed

	du := toDuForm(text)
	flags.set(FlagUsedDuForm, du != text)
	text = du

	text = cleanPunctuation(text)

	residue := false
	if linkRe.MatchString(text) {
		flags.set(FlagHasLink, true)
		text = linkRe.ReplaceAllString(text, LinkPlaceholder)
		residue = true
	}
	if farewellRe.MatchString(text) {
		flags.set(FlagHadFarewell, true)
		text = farewellRe.ReplaceAllString(text, "")
		residue = true
	}
	if residue {
		text = cleanPunctuation(text)
	}

	if utf8.RuneCountInString(text) > f.maxLength {
		flags.set(FlagTooLong, true)
		text = truncate(text, f.maxLength)
	}

	if isBlank(text) {
		flags.set(FlagEmptyFallback, true)
		text = EmptyFallback
	}
	return text, false
}

// truncate cuts text to at most max runes, preferring the last sentence
// terminator inside the window. Otherwise it cuts before the word that
// crosses the cap, and only splits a word that has no space before it.
func truncate(text string, max int) string {
	runes := []rune(text)
	window := runes[:max]
	for i := len(window) - 1; i > 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return string(window[:i+1])
		}
	}
	keep := runes[:max-1]
	if isWordRune(runes[max-1]) && isWordRune(keep[len(keep)-1]) {
		for i := len(keep) - 1; i > 0; i-- {
			if unicode.IsSpace(keep[i]) {
				keep = keep[:i]
				break
			}
		}
	}
	cut := cleanPunctuation(strings.TrimSpace(string(keep)))
	if utf8.RuneCountInString(cut) > max {
		cut = string([]rune(cut)[:max])
	}
	return cut
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
