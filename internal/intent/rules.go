package intent

import (
	"regexp"
	"strings"
)

// Pattern is one keyword or regular expression inside a rule group.
// Keywords match as case-insensitive substrings; expressions run against
// the lowercased text.
type Pattern struct {
	Key string
	re  *regexp.Regexp
}

// Keyword returns a substring pattern.
func Keyword(k string) Pattern {
	return Pattern{Key: strings.ToLower(k)}
}

// Regex returns a pattern backed by expr. It panics on an invalid expression,
// like regexp.MustCompile, since rule tables are built at init.
func Regex(expr string) Pattern {
	return Pattern{Key: expr, re: regexp.MustCompile(expr)}
}

func (p Pattern) match(lower string) bool {
	if p.re != nil {
		return p.re.MatchString(lower)
	}
	return strings.Contains(lower, p.Key)
}

// Scope selects which input a rule inspects.
type Scope int

const (
	// ScopeText checks the current message only.
	ScopeText Scope = iota
	// ScopeContext checks the recent window only.
	ScopeContext
	// ScopeEither checks the current message, then the window.
	ScopeEither
)

// Rule is one entry of the priority chain.
type Rule struct {
	Name       string
	Intent     Intent
	Confidence float64
	Scope      Scope
	Patterns   []Pattern
}

var (
	boundaryPatterns = []Pattern{
		Keyword("whatsapp"), Keyword("telegram"), Keyword("instagram"), Keyword("snapchat"),
		Keyword("facebook"), Keyword("skype"), Keyword("videochat"), Keyword("telefon"),
		Keyword("nummer"), Keyword("anrufen"), Keyword("adresse"), Keyword("standort"),
		Keyword("wo wohnst"), Keyword("woher genau"), Keyword("e-mail"), Keyword("email"),
		Keyword("treffen"), Keyword("kennenlernen im echten"),
		Regex(`\bdate\b`), Regex(`\bsnap\b`), Regex(`\bcam\b`), Regex(`\bmail\b`),
		Regex(`\bsignal\b`), Regex(`\bcall\b`), Regex(`\binsta\b`),
		Regex(`\+?\d[\d /()]{6,}\d`),
	}
	aggressivePatterns = []Pattern{
		Keyword("dumm"), Keyword("blöd"), Keyword("verarsch"), Keyword("spinnst"),
		Keyword("scheiss"), Keyword("scheiße"), Keyword("halt die"), Keyword("idiot"),
		Keyword("schlampe"), Keyword("hure"), Keyword("fotze"), Keyword("wichser"),
		Regex(`\barsch`),
	}
	sexualPatterns = []Pattern{
		Keyword("sex"), Keyword("ficken"), Keyword("blasen"), Keyword("lecken"),
		Keyword("doggy"), Keyword("titten"), Keyword("brüste"), Keyword("busen"),
		Keyword("nackt"), Keyword("geil"), Keyword("küssen"), Keyword("kuss"),
		Keyword("verwöhnen"), Keyword("verwoehnen"), Keyword("dirty"), Keyword("vorlieben"),
		Regex(`\boral\b`), Regex(`\banal\b`), Regex(`\b69\b`), Regex(`\blust\b`),
	}
	repetitionPatterns = []Pattern{
		Keyword("schon gesagt"), Keyword("wie gesagt"), Keyword("bereits besprochen"),
		Keyword("hatten wir schon"), Keyword("hatten wir doch"), Keyword("wie vorhin"),
		Keyword("nochmal"), Keyword("noch mal"), Keyword("zum x-ten mal"),
		Keyword("schon wieder"),
	}
	smalltalkPatterns = []Pattern{
		Regex(`\b(hi|hey|hallo|moin|servus|na)\b`),
		Keyword("guten morgen"), Keyword("guten tag"), Keyword("guten abend"),
		Keyword("wie geht"), Keyword("was machst"), Keyword("alles gut"),
		Keyword("wie läufts"), Keyword("wie laeufts"), Keyword("grüß"),
	}
	complimentPatterns = []Pattern{
		Keyword("süß"), Keyword("süss"), Keyword("suess"), Keyword("hübsch"),
		Keyword("huebsch"), Keyword("schön"), Keyword("schoen"), Keyword("attraktiv"),
		Keyword("mag dich"), Keyword("gefällst"), Keyword("gefaellst"), Keyword("engel"),
		Keyword("traumhaft"), Regex(`\bwow\b`), Regex(`\btoll\b`),
	}
	questionPatterns = []Pattern{
		Regex(`\?\s*$`),
		Regex(`^(warum|wieso|weshalb|wie|was|wann|wo|woher|wohin|welche[rsmn]?|wer)\b`),
	}
)

// DefaultRules returns the priority chain used by New when no rules are given.
// Order matters: the first rule that matches wins.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "boundary", Intent: Boundary, Confidence: 0.95, Scope: ScopeText, Patterns: boundaryPatterns},
		{Name: "aggressive", Intent: Aggressive, Confidence: 0.90, Scope: ScopeText, Patterns: aggressivePatterns},
		{Name: "sexual", Intent: Sexual, Confidence: 0.85, Scope: ScopeText, Patterns: sexualPatterns},
		{Name: "sexual_context", Intent: Sexual, Confidence: 0.85, Scope: ScopeContext, Patterns: sexualPatterns},
		{Name: "repetition", Intent: Repetition, Confidence: 0.70, Scope: ScopeEither, Patterns: repetitionPatterns},
		{Name: "smalltalk", Intent: Smalltalk, Confidence: 0.70, Scope: ScopeText, Patterns: smalltalkPatterns},
		{Name: "compliment", Intent: Compliment, Confidence: 0.80, Scope: ScopeText, Patterns: complimentPatterns},
		{Name: "question", Intent: Question, Confidence: 0.75, Scope: ScopeText, Patterns: questionPatterns},
	}
}
