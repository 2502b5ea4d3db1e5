// Package tracker turns repeated thread snapshots into at most one reply
// event per poll tick.
package tracker

import (
	"strings"
	"time"

	"github.com/stellarlinkco/replypilot/internal/thread"
)

const DefaultFollowUpAfter = 4 * time.Hour

// Kind tags an Event.
type Kind int

const (
	KindNone Kind = iota
	KindNewInbound
	// KindNoReplyInbound is a new inbound record with blank text. It is
	// counted but needs no reply.
	KindNoReplyInbound
	KindFollowUp
)

func (k Kind) String() string {
	switch k {
	case KindNewInbound:
		return "new_inbound"
	case KindNoReplyInbound:
		return "no_reply_inbound"
	case KindFollowUp:
		return "follow_up"
	default:
		return "none"
	}
}

// Event is emitted once per Observe call.
type Event struct {
	Kind   Kind
	Record thread.Record
	// Elapsed is the age of the own record for KindFollowUp.
	Elapsed time.Duration
}

// NeedsReply reports whether the event should produce a draft.
func (e Event) NeedsReply() bool {
	return e.Kind == KindNewInbound || e.Kind == KindFollowUp
}

// State is the tracker's only cross-tick memory.
type State struct {
	LastObservedCount int `json:"lastObservedCount"`
}

// Options configures a Tracker.
type Options struct {
	FollowUpAfter time.Duration
	// Location interprets scraped timestamps. Defaults to time.Local.
	Location *time.Location
}

type pendingFollowUp struct {
	record thread.Record
	count  int
}

// Tracker is owned by a single loop goroutine and is not safe for
// concurrent use.
type Tracker struct {
	state         State
	followUpAfter time.Duration
	loc           *time.Location
	pending       *pendingFollowUp
}

// New creates a Tracker with a zero count.
func New(opts Options) *Tracker {
	t := &Tracker{followUpAfter: opts.FollowUpAfter, loc: opts.Location}
	if t.followUpAfter <= 0 {
		t.followUpAfter = DefaultFollowUpAfter
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	return t
}

// Restore creates a Tracker that continues from a previous state.
func Restore(opts Options, s State) *Tracker {
	t := New(opts)
	t.state = s
	return t
}

// State returns a copy of the current state.
func (t *Tracker) State() State { return t.state }

// Reset returns the tracker to its startup state.
func (t *Tracker) Reset() {
	t.state = State{}
	t.pending = nil
}

// Observe evaluates one snapshot, oldest record first.
func (t *Tracker) Observe(snapshot []thread.Record, now time.Time) Event {
	n := len(snapshot)
	if n == 0 {
		return Event{Kind: KindNone}
	}
	latest := snapshot[n-1]

	if p := t.pending; p != nil {
		switch {
		case n == p.count && latest == p.record:
			// Already followed up on this unchanged tail.
			return Event{Kind: KindNone}
		case n > p.count:
			// The thread moved on; drop the synthetic unit.
			t.state.LastObservedCount = p.count
			t.pending = nil
		default:
			t.pending = nil
			t.state.LastObservedCount = n
			return Event{Kind: KindNone}
		}
	}

	// A shrunk thread (reloaded view, other conversation) becomes the new
	// baseline without an event.
	if n < t.state.LastObservedCount {
		t.state.LastObservedCount = n
		return Event{Kind: KindNone}
	}

	switch {
	case n > t.state.LastObservedCount && !latest.IsOwn:
		t.state.LastObservedCount = n
		if strings.TrimSpace(latest.Text) == "" {
			return Event{Kind: KindNoReplyInbound, Record: latest}
		}
		return Event{Kind: KindNewInbound, Record: latest}

	case latest.IsOwn && n == t.state.LastObservedCount:
		sent, ok := thread.ParseTimestampIn(latest.RawTimestamp, t.loc)
		if !ok {
			return Event{Kind: KindNone}
		}
		elapsed := now.Sub(sent)
		if elapsed <= t.followUpAfter {
			return Event{Kind: KindNone}
		}
		t.pending = &pendingFollowUp{record: latest, count: n}
		t.state.LastObservedCount = n + 1
		return Event{Kind: KindFollowUp, Record: latest, Elapsed: elapsed}

	default:
		t.state.LastObservedCount = n
		return Event{Kind: KindNone}
	}
}
