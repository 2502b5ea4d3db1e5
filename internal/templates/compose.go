package templates

import (
	"strings"
	"time"

	"github.com/stellarlinkco/replypilot/internal/intent"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

// Gap classifies the pause between our last message and the peer's answer.
type Gap string

const (
	GapShort Gap = "short"
	GapMid   Gap = "mid"
	GapLong  Gap = "long"
)

const neutralGreetingAfter = 6 * time.Hour

var leadIns = map[Gap][]string{
	GapShort: {""},
	GapMid:   {"Da bin ich wieder. ", "Schön, dass du schreibst. "},
	GapLong:  {"Schön, wieder von dir zu lesen. ", "Lange nichts gehört, schön dass du da bist. "},
}

// Greeting picks a salutation for now. A reference message older than six
// hours gets the neutral "Hey".
func Greeting(now time.Time, ref *time.Time) string {
	if ref != nil {
		if d := now.Sub(*ref); d > neutralGreetingAfter || -d > neutralGreetingAfter {
			return "Hey"
		}
	}
	switch h := now.Hour(); {
	case h >= 5 && h < 10:
		return "Guten Morgen"
	case h >= 10 && h < 17:
		return "Guten Tag"
	case h >= 17 && h < 22:
		return "Guten Abend"
	default:
		return "Hey"
	}
}

// GapKind measures from our last message to the peer's last message, or to
// now when the peer has not answered.
func GapKind(lastOut, lastIn *time.Time, now time.Time) Gap {
	if lastOut == nil {
		return GapShort
	}
	ref := now
	if lastIn != nil {
		ref = *lastIn
	}
	switch d := ref.Sub(*lastOut); {
	case d > 24*time.Hour:
		return GapLong
	case d > 2*time.Hour:
		return GapMid
	default:
		return GapShort
	}
}

// DraftInput is what a template-only draft is built from.
type DraftInput struct {
	Text    string
	Recent  []string
	Now     time.Time
	LastOut *time.Time
	LastIn  *time.Time
}

// Draft is an unfiltered template-only reply.
type Draft struct {
	Text   string
	Intent intent.Result
	Gap    Gap
}

// Composer builds greeting, lead-in and body into one draft.
type Composer struct {
	classifier *intent.Classifier
	selector   *Selector
}

func NewComposer(c *intent.Classifier, s *Selector) *Composer {
	return &Composer{classifier: c, selector: s}
}

// Compose classifies in.Text and assembles "<greeting>! <lead-in><body>".
func (c *Composer) Compose(in DraftInput) Draft {
	res := c.classifier.Classify(in.Text, in.Recent)
	gap := GapKind(in.LastOut, in.LastIn, in.Now)
	ref := in.LastIn
	if ref == nil {
		ref = in.LastOut
	}

	leads := leadIns[gap]
	lead := c.pickFrom(leads)
	body := c.selector.Pick(res.Intent, in.Text)

	text := strings.TrimSpace(Greeting(in.Now, ref) + "! " + lead + body)
	return Draft{Text: text, Intent: res, Gap: gap}
}

// ComposeFromRecords derives the draft input from a snapshot.
func (c *Composer) ComposeFromRecords(records []thread.Record, now time.Time, loc *time.Location) Draft {
	in := DraftInput{Now: now, Recent: thread.ContextWindow(records, intent.DefaultContextTurns)}
	if r, ok := thread.LastInbound(records); ok {
		in.Text = r.Text
		if ts, ok := thread.ParseTimestampIn(r.RawTimestamp, loc); ok {
			in.LastIn = &ts
		}
	}
	if r, ok := thread.LastOwn(records); ok {
		if ts, ok := thread.ParseTimestampIn(r.RawTimestamp, loc); ok {
			in.LastOut = &ts
		}
	}
	return c.Compose(in)
}

func (c *Composer) pickFrom(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[c.selector.intn(len(pool))]
}
