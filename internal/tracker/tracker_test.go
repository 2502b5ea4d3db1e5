package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/replypilot/internal/thread"
)

var now = time.Date(2025, 8, 22, 20, 0, 0, 0, time.UTC)

func opts() Options {
	return Options{FollowUpAfter: 4 * time.Hour, Location: time.UTC}
}

func in(text string) thread.Record { return thread.Record{Text: text, RawTimestamp: "10:00 22/8/2025"} }

func own(text, ts string) thread.Record {
	return thread.Record{Text: text, IsOwn: true, RawTimestamp: ts}
}

func snapshot(n int, last thread.Record) []thread.Record {
	s := make([]thread.Record, 0, n)
	for i := 0; i < n-1; i++ {
		s = append(s, in("alt"))
	}
	return append(s, last)
}

func TestObserve_EmptySnapshot(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 3})
	ev := tr.Observe(nil, now)
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 3, tr.State().LastObservedCount)
}

func TestObserve_NewInbound(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 3})
	ev := tr.Observe(snapshot(4, in("Hallo du")), now)

	require.Equal(t, KindNewInbound, ev.Kind)
	assert.Equal(t, "Hallo du", ev.Record.Text)
	assert.True(t, ev.NeedsReply())
	assert.Equal(t, 4, tr.State().LastObservedCount)

	again := tr.Observe(snapshot(4, in("Hallo du")), now)
	assert.Equal(t, KindNone, again.Kind)
	assert.Equal(t, 4, tr.State().LastObservedCount)
}

func TestObserve_StartupRepliesToTrailingInbound(t *testing.T) {
	tr := New(opts())
	ev := tr.Observe(snapshot(7, in("Bist du da?")), now)
	assert.Equal(t, KindNewInbound, ev.Kind)
	assert.Equal(t, 7, tr.State().LastObservedCount)
}

func TestObserve_BlankInboundCountedWithoutReply(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 2})
	ev := tr.Observe(snapshot(3, in("   ")), now)

	assert.Equal(t, KindNoReplyInbound, ev.Kind)
	assert.False(t, ev.NeedsReply())
	assert.Equal(t, 3, tr.State().LastObservedCount)

	assert.Equal(t, KindNone, tr.Observe(snapshot(3, in("   ")), now).Kind)
}

func TestObserve_FollowUp(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	last := own("Wie war dein Tag?", "15:00 22/8/2025")

	ev := tr.Observe(snapshot(4, last), now)

	require.Equal(t, KindFollowUp, ev.Kind)
	assert.Equal(t, last, ev.Record)
	assert.Equal(t, 5*time.Hour, ev.Elapsed)
	assert.Equal(t, 5, tr.State().LastObservedCount)
}

func TestObserve_FollowUpFiresOncePerTail(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	snap := snapshot(4, own("Wie war dein Tag?", "15:00 22/8/2025"))

	require.Equal(t, KindFollowUp, tr.Observe(snap, now).Kind)
	for i := 1; i <= 5; i++ {
		ev := tr.Observe(snap, now.Add(time.Duration(i)*time.Minute))
		assert.Equal(t, KindNone, ev.Kind, "tick %d", i)
		assert.Equal(t, 5, tr.State().LastObservedCount)
	}
}

func TestObserve_InboundAfterFollowUpIsNotSwallowed(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	snap := snapshot(4, own("Wie war dein Tag?", "15:00 22/8/2025"))
	require.Equal(t, KindFollowUp, tr.Observe(snap, now).Kind)

	grown := append(append([]thread.Record(nil), snap...), in("Sorry, war unterwegs"))
	ev := tr.Observe(grown, now.Add(time.Minute))

	assert.Equal(t, KindNewInbound, ev.Kind)
	assert.Equal(t, 5, tr.State().LastObservedCount)
}

func TestObserve_SentFollowUpResetsStaleness(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	snap := snapshot(4, own("Wie war dein Tag?", "15:00 22/8/2025"))
	require.Equal(t, KindFollowUp, tr.Observe(snap, now).Kind)

	sent := append(append([]thread.Record(nil), snap...), own("Hey, alles gut bei dir?", "20:01 22/8/2025"))
	ev := tr.Observe(sent, now.Add(2*time.Minute))
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 5, tr.State().LastObservedCount)

	// Once the sent follow-up goes stale itself, a new one is due.
	later := now.Add(5 * time.Hour)
	assert.Equal(t, KindFollowUp, tr.Observe(sent, later).Kind)
	assert.Equal(t, 6, tr.State().LastObservedCount)
}

func TestObserve_OwnNotStale(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	ev := tr.Observe(snapshot(4, own("Und du?", "18:30 22/8/2025")), now)
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 4, tr.State().LastObservedCount)
}

func TestObserve_ExactlyThresholdIsNotStale(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	ev := tr.Observe(snapshot(4, own("Und du?", "16:00 22/8/2025")), now)
	assert.Equal(t, KindNone, ev.Kind)
}

func TestObserve_UnparsableTimestampMeansUnknownGap(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	for _, ts := range []string{"", "gestern", "10:00 31/4/2025"} {
		ev := tr.Observe(snapshot(4, own("Und du?", ts)), now)
		assert.Equal(t, KindNone, ev.Kind, ts)
		assert.Equal(t, 4, tr.State().LastObservedCount)
	}
}

func TestObserve_OwnMessageGrowthUpdatesCount(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	ev := tr.Observe(snapshot(5, own("Gerade geschrieben", "19:59 22/8/2025")), now)
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 5, tr.State().LastObservedCount)
}

func TestObserve_ShrunkThreadIsFreshBaseline(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 10})
	ev := tr.Observe(snapshot(3, in("Neuer Chat")), now)
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 3, tr.State().LastObservedCount)

	// Growth from the new baseline is handled as usual.
	ev = tr.Observe(append(snapshot(3, in("Neuer Chat")), in("Hallo?")), now)
	assert.Equal(t, KindNewInbound, ev.Kind)
	assert.Equal(t, 4, tr.State().LastObservedCount)

	tr = Restore(opts(), State{LastObservedCount: 10})
	ev = tr.Observe(snapshot(3, own("Hi", "19:00 22/8/2025")), now)
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 3, tr.State().LastObservedCount)
}

func TestObserve_ShrunkAfterFollowUpIsFreshBaseline(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	require.Equal(t, KindFollowUp, tr.Observe(snapshot(4, own("Wie war dein Tag?", "15:00 22/8/2025")), now).Kind)

	ev := tr.Observe(snapshot(2, in("Anderer Chat")), now.Add(time.Minute))
	assert.Equal(t, KindNone, ev.Kind)
	assert.Equal(t, 2, tr.State().LastObservedCount)

	tr = Restore(opts(), State{LastObservedCount: 4})
	require.Equal(t, KindFollowUp, tr.Observe(snapshot(4, own("Wie war dein Tag?", "15:00 22/8/2025")), now).Kind)
	ev = tr.Observe(snapshot(4, own("Bearbeitet", "15:00 22/8/2025")), now.Add(time.Minute))
	assert.Equal(t, KindNone, ev.Kind, "changed tail at the same length")
	assert.Equal(t, 4, tr.State().LastObservedCount)
}

func TestReset(t *testing.T) {
	tr := Restore(opts(), State{LastObservedCount: 4})
	tr.Observe(snapshot(4, own("x", "10:00 22/8/2025")), now)
	tr.Reset()
	assert.Equal(t, State{}, tr.State())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "follow_up", KindFollowUp.String())
	assert.Equal(t, "none", KindNone.String())
}
