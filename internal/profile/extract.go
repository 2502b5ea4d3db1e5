// Package profile derives a conservative peer profile from archived inbound
// messages. Contact values are never stored; only the fact that one was
// shared is recorded.
package profile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/stellarlinkco/replypilot/internal/policy"
	"github.com/stellarlinkco/replypilot/internal/store"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

const DefaultWindow = 60

// Fact keys and confidences written to dialog_info.
const (
	KeyPhone   = "telefonnummer"
	KeyAddress = "adresse"
	KeyWish    = "sucht"
	Known      = "bekannt"

	WishFriendsPlus = "freundschaft_plus"
	WishSteady      = "festes"

	phoneConfidence   = 0.95
	addressConfidence = 0.90
	wishConfidence    = 0.85
)

// word wraps alternatives with letter-aware boundaries; \b only knows ASCII.
func word(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + alts + `)(?:$|[^\p{L}\p{N}])`)
}

var (
	cityRe = regexp.MustCompile(`(?:^|[^\p{L}])(?i:ich\s*(?:wohne|lebe)\s*(?:in|bei)|komme\s*aus|wohnhaft\s*in|aus)\s+([A-ZÄÖÜ][a-zäöüß-]{2,})(?:$|[^\p{L}])`)

	durationRe = regexp.MustCompile(`seit\s*(\d{1,2})\s*jahr`)

	jobRe = word(`ingenieur(?:in)?|mechaniker(?:in)?|handwerker(?:in)?|arzt|ärztin|pfleger(?:in)?|krankenschwester|` +
		`fahrer(?:in)?|koch|köchin|lehrer(?:in)?|student(?:in)?|informatiker(?:in)?|entwickler(?:in)?|` +
		`programmierer(?:in)?|verk[aä]ufer(?:in)?|friseur(?:in)?|bauarbeiter|elektriker(?:in)?|anwalt|anwältin`)

	maleRe   = word(`ich\s*bin\s*(?:ein\s*)?mann|männlich|m\s?\d{2}`)
	femaleRe = word(`ich\s*bin\s*(?:eine\s*)?frau|weiblich|w\s?\d{2}`)

	friendsPlusRe = regexp.MustCompile(`(?:^|[^\p{L}])(?:freundschaft\s*plus|freundschaft\s*\+|f\+)`)
	steadyRe      = word(`etwas\s*festes|was\s*festes|beziehung|ernsthaft`)

	phoneRe   = regexp.MustCompile(`\+?\d[\d\s/-]{4,}\d`)
	addressRe = regexp.MustCompile(`(?:stra(?:ss|ß)e|str\.|platz|allee)(?:$|[^\p{L}])|(?:^|[^\p{L}])(?:hausnummer|plz)(?:$|[^\p{L}])`)
)

type status struct {
	re    *regexp.Regexp
	value string
}

var statuses = []status{
	{word(`single`), "single"},
	{word(`geschieden`), "geschieden"},
	{word(`verheiratet`), "verheiratet"},
	{word(`getrennt`), "getrennt"},
	{word(`verwitwet`), "verwitwet"},
}

// Words that follow "aus" or "in" but are never places.
var cityBlacklist = map[string]bool{
	"allen": true, "alles": true, "gut": true, "bisschen": true,
	"heute": true, "morgen": true, "gestern": true,
	"spaß": true, "liebe": true, "langeweile": true, "neugier": true, "versehen": true,
}

// Result is what one extraction pass found.
type Result struct {
	Profile store.Profile
	Facts   []store.Fact
	Scanned int
}

// Empty reports whether nothing was found.
func (r Result) Empty() bool {
	p := r.Profile
	return p.City == "" && p.Status == "" && p.Job == "" && p.Gender == "" && len(r.Facts) == 0
}

// Extract scans texts, newest first. The first hit per profile field wins.
// Messages naming family members are ignored entirely; meetup or contact
// messages only contribute the phone/address markers.
func Extract(texts []string) Result {
	res := Result{Profile: store.Profile{Side: store.SidePeer}}
	var phone, address bool
	seen := map[string]bool{}

	for _, raw := range texts {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		res.Scanned++
		if policy.MentionsFamily(t) {
			continue
		}
		lower := strings.ToLower(t)

		if policy.MentionsContact(t) || policy.MentionsMeetup(t) {
			phone = phone || phoneRe.MatchString(lower)
			address = address || addressRe.MatchString(lower)
			continue
		}

		p := &res.Profile
		if p.City == "" {
			p.City = City(t)
		}
		if p.Status == "" {
			p.Status = Status(lower)
		}
		if p.Job == "" {
			p.Job = Job(lower)
		}
		if p.Gender == "" {
			p.Gender = Gender(lower)
		}
		for _, w := range Wishes(lower) {
			if !seen[w] {
				seen[w] = true
				res.Facts = append(res.Facts, store.Fact{Key: KeyWish, Value: w, Confidence: wishConfidence})
			}
		}
	}

	if phone {
		res.Facts = append(res.Facts, store.Fact{Key: KeyPhone, Value: Known, Confidence: phoneConfidence})
	}
	if address {
		res.Facts = append(res.Facts, store.Fact{Key: KeyAddress, Value: Known, Confidence: addressConfidence})
	}
	return res
}

// City returns a place name from phrases like "ich wohne in Mainz".
func City(text string) string {
	for _, m := range cityRe.FindAllStringSubmatch(text, -1) {
		c := strings.TrimRight(m[1], "-")
		if len([]rune(c)) < 3 || cityBlacklist[strings.ToLower(c)] {
			continue
		}
		return c
	}
	return ""
}

// Status expects lowercased text and may append a duration ("geschieden seit 3 jahren").
func Status(lower string) string {
	for _, s := range statuses {
		if !s.re.MatchString(lower) {
			continue
		}
		if m := durationRe.FindStringSubmatch(lower); m != nil {
			return fmt.Sprintf("%s seit %s jahren", s.value, m[1])
		}
		return s.value
	}
	return ""
}

func Job(lower string) string {
	m := jobRe.FindString(lower)
	if m == "" {
		return ""
	}
	return strings.TrimFunc(m, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !strings.ContainsRune("äöüß", r)
	})
}

// Gender returns "m", "w" or "".
func Gender(lower string) string {
	switch {
	case maleRe.MatchString(lower):
		return "m"
	case femaleRe.MatchString(lower):
		return "w"
	}
	return ""
}

func Wishes(lower string) []string {
	var out []string
	if friendsPlusRe.MatchString(lower) {
		out = append(out, WishFriendsPlus)
	}
	if steadyRe.MatchString(lower) {
		out = append(out, WishSteady)
	}
	return out
}

// Source is the slice of the store extraction reads from and writes to.
type Source interface {
	RecentMessages(ctx context.Context, limit int) ([]store.Message, error)
	UpsertProfile(ctx context.Context, p store.Profile) error
	AddDialogInfo(ctx context.Context, f store.Fact) error
}

// Run extracts from the last window archived messages and persists the
// findings. Only inbound messages are considered.
func Run(ctx context.Context, src Source, window int) (Result, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	msgs, err := src.RecentMessages(ctx, window)
	if err != nil {
		return Result{}, fmt.Errorf("load messages: %w", err)
	}

	texts := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Direction == thread.DirectionIn {
			texts = append(texts, msgs[i].Text)
		}
	}

	res := Extract(texts)
	p := res.Profile
	if p.City != "" || p.Status != "" || p.Job != "" || p.Gender != "" {
		if err := src.UpsertProfile(ctx, p); err != nil {
			return res, err
		}
	}
	for _, f := range res.Facts {
		if err := src.AddDialogInfo(ctx, f); err != nil {
			return res, err
		}
	}
	return res, nil
}
