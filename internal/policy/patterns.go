package policy

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MeetupDecline   = "Ich finde unsere Gespräche hier wirklich spannend und möchte das gerne erstmal so beibehalten."
	ContactDecline  = "Ich fühle mich am wohlsten, wenn wir uns vorerst nur hier im Chat austauschen."
	EmptyFallback   = "Erzähl mir bitte mehr, ich gehe darauf ein."
	LinkPlaceholder = "[Link entfernt]"
)

// All detection patterns run against lowercased text unless noted. A handle
// must end on a letter, digit or underscore, and a link takes its whole
// whitespace-delimited token, so cleanup output never forms a new match.
var (
	familyRe = regexp.MustCompile(`inzest|stief(mutter|vater|schwester|bruder|tochter|sohn)|\b(bruder|schwester|vater|mutter|tochter|sohn)\b`)

	explicitRe = regexp.MustCompile(`ficken|\bsex|geil|ständer|muschi|pussy|schwanz|penis|vögeln|bumsen|lecken|lutschen|blasen`)

	meetupRe = regexp.MustCompile(`\b(uns treffen|dich treffen|treffen wir|treffen uns|treffen|date|dates|reallife|real\s*life|kaffee trinken|zum kaffee|auf einen kaffee|spazieren gehen|sehen wir uns|wann und wo|welcher ort|welche uhrzeit|hast du zeit|adre(ss|ß)e|wo wohnst du|live sehen|sieht man sich|persönlich kennenlernen|persönlich vorstellen|vorbeikommen|zu mir kommen|zu dir kommen|abholen|nur wir beide|zufällig irgendwo)\b|\bverabred\w*`)

	contactRe = regexp.MustCompile(`\b(whats[\s-]*app|wa|telefon\w*|handy\w*|nummer\w*|anruf\w*|ruf\s+(mich\s+)?an|tele?gram|snap(chat)?|instagram|insta|facebook|fb|(e-?)?mail\w*|gmail|yahoo|hotmail|outlook|icq|line|kik|skype|signal|threema|discord)\b`)
	emailRe   = regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9-]+\.[a-z0-9.-]+`)
	handleRe  = regexp.MustCompile(`(^|[^a-z0-9_])@[a-z0-9_][a-z0-9_.]+[a-z0-9_]`)
	phoneRe   = regexp.MustCompile(`\+?\d[\d /()-]{6,}\d`)

	linkRe     = regexp.MustCompile(`(?i)\S*(?:https?://|www\.)\S+`)
	farewellRe = regexp.MustCompile(`(?i)\b(tsch[uü]ss|tschüß|ciao|auf wiedersehen|bye|gute nacht|bis bald|bis morgen|mach[’']?s gut|schlaf gut|bis sp[aä]ter|bis dann)\b`)

	dashRe = regexp.MustCompile(`[-–—]+`)
	duRe   = regexp.MustCompile(`\b(Sie|Ihnen|Ihrer|Ihren|Ihre|Ihr)\b`)

	spaceBeforePunctRe = regexp.MustCompile(`[\s\p{Zs}]+([!?.,;:])`)
	repeatedPunctRe    = regexp.MustCompile(`[!?.,;:]{2,}`)
	spaceRunRe         = regexp.MustCompile(`[\s\p{Zs}]{2,}`)
	leadingPunctRe     = regexp.MustCompile(`^[\s\p{Zs},;:!?.]+`)
	onlyPunctRe        = regexp.MustCompile(`^[\s\p{Zs},;:!?.\-–—]+$`)
)

var duForms = map[string]string{
	"Sie":   "du",
	"Ihnen": "dir",
	"Ihrer": "deiner",
	"Ihr":   "dein",
	"Ihre":  "deine",
	"Ihren": "deine",
}

func hardBlocked(lower string) bool {
	return familyRe.MatchString(lower) && explicitRe.MatchString(lower)
}

func hasMeetup(lower string) bool {
	return meetupRe.MatchString(lower)
}

func hasContact(lower string) bool {
	return contactRe.MatchString(lower) ||
		emailRe.MatchString(lower) ||
		handleRe.MatchString(lower) ||
		phoneRe.MatchString(lower)
}

// MentionsFamily reports whether text names a family member.
func MentionsFamily(text string) bool {
	return familyRe.MatchString(strings.ToLower(text))
}

// MentionsMeetup reports whether text proposes meeting outside the chat.
func MentionsMeetup(text string) bool {
	return hasMeetup(strings.ToLower(text))
}

// MentionsContact reports whether text names or carries off-platform contact details.
func MentionsContact(text string) bool {
	return hasContact(strings.ToLower(text))
}

func normalizeSharpS(s string) string {
	return strings.NewReplacer("ß", "ss", "ẞ", "SS").Replace(s)
}

func toDuForm(s string) string {
	locs := duRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		b.WriteString(s[prev:loc[0]])
		repl := duForms[s[loc[0]:loc[1]]]
		if sentenceStart(s[:loc[0]]) {
			repl = strings.ToUpper(repl[:1]) + repl[1:]
		}
		b.WriteString(repl)
		prev = loc[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

// sentenceStart reports whether the text before a match ends a sentence.
func sentenceStart(before string) bool {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	if before == "" {
		return true
	}
	switch before[len(before)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// cleanPunctuation is idempotent: its output is a fixed point of itself.
func cleanPunctuation(s string) string {
	s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
	s = repeatedPunctRe.ReplaceAllStringFunc(s, func(run string) string {
		return run[len(run)-1:]
	})
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = leadingPunctRe.ReplaceAllString(s, "")
	if s == "" || onlyPunctRe.MatchString(s) {
		return ""
	}
	if last := lastRune(s); unicode.IsLetter(last) || unicode.IsDigit(last) {
		s += "."
	}
	return s
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == "" || onlyPunctRe.MatchString(s)
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

func violated(s string) bool {
	return strings.ContainsAny(s, "-–—ßẞ")
}
