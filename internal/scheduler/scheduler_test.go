package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/store"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

type fakeStore struct {
	msgs     []store.Message
	profiles []store.Profile
	facts    []store.Fact
	cutoff   time.Time
	pruned   int64
	err      error
}

func (f *fakeStore) RecentMessages(ctx context.Context, limit int) ([]store.Message, error) {
	return f.msgs, f.err
}

func (f *fakeStore) UpsertProfile(ctx context.Context, p store.Profile) error {
	f.profiles = append(f.profiles, p)
	return nil
}

func (f *fakeStore) AddDialogInfo(ctx context.Context, fact store.Fact) error {
	f.facts = append(f.facts, fact)
	return nil
}

func (f *fakeStore) PruneDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.pruned, f.err
}

func TestService_AddValidates(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) (string, error) { return "", nil }

	if err := s.Add(Job{Name: "bad", Expr: "not a cron", Run: noop}); err == nil {
		t.Error("expected error for invalid expression")
	}
	if err := s.Add(Job{Name: "nil", Expr: "* * * * * *"}); err == nil {
		t.Error("expected error for missing run function")
	}
	if err := s.Add(Job{Name: "a", Expr: "0 */5 * * * *", Run: noop}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := s.Add(Job{Name: "a", Expr: "@hourly", Run: noop}); err == nil {
		t.Error("expected error for duplicate name")
	}
	if got := len(s.Jobs()); got != 1 {
		t.Errorf("jobs = %d, want 1", got)
	}
}

func TestService_RunsScheduledJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(zaptest.NewLogger(t))
	var runs atomic.Int32
	err := s.Add(Job{Name: "tick", Expr: "* * * * * *", Run: func(ctx context.Context) (string, error) {
		runs.Add(1)
		return "ok", nil
	}})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}

	st := s.Jobs()[0]
	if st.Runs == 0 || st.LastStatus != "ok" || st.LastResult != "ok" {
		t.Errorf("state = %+v", st)
	}
	if err := s.Add(Job{Name: "late", Expr: "@daily", Run: func(context.Context) (string, error) { return "", nil }}); err != nil {
		t.Errorf("Add after stop should succeed: %v", err)
	}
}

func TestService_StopWaitsForRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(nil)
	started := make(chan struct{}, 1)
	var sawCancel atomic.Bool
	_ = s.Add(Job{Name: "slow", Expr: "* * * * * *", Run: func(ctx context.Context) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
		return "", ctx.Err()
	}})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		s.Stop()
		t.Fatal("job never started")
	}
	s.Stop()
	if !sawCancel.Load() {
		t.Error("Stop returned before the running job saw cancellation")
	}
	s.Stop()
}

func TestService_RunNow(t *testing.T) {
	s := New(nil)
	_ = s.Add(Job{Name: "fail", Expr: "@daily", Run: func(context.Context) (string, error) {
		return "", errors.New("disk full")
	}})

	st, err := s.RunNow(context.Background(), "fail")
	if err != nil {
		t.Fatalf("RunNow error: %v", err)
	}
	if st.Runs != 1 || st.LastStatus != "error" || st.LastError != "disk full" {
		t.Errorf("state = %+v", st)
	}
	if _, err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestExtractJob(t *testing.T) {
	fs := &fakeStore{msgs: []store.Message{
		{Direction: thread.DirectionOut, Text: "Woher kommst du?"},
		{Direction: thread.DirectionIn, Text: "Ich wohne in Hamburg und bin single"},
	}}
	job := ExtractJob("@hourly", fs, 10)
	if job.Name != JobExtract {
		t.Errorf("name = %q", job.Name)
	}

	out, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.HasPrefix(out, "scanned ") {
		t.Errorf("result = %q", out)
	}
	if len(fs.profiles) != 1 || fs.profiles[0].City != "Hamburg" {
		t.Errorf("profiles = %+v", fs.profiles)
	}
}

func TestPruneJob(t *testing.T) {
	now := time.Date(2024, 5, 31, 4, 0, 0, 0, time.UTC)
	fs := &fakeStore{pruned: 3}
	job := PruneJob("@daily", fs, 30*24*time.Hour, func() time.Time { return now })

	out, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != "pruned 3" {
		t.Errorf("result = %q, want pruned 3", out)
	}
	if want := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC); !fs.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", fs.cutoff, want)
	}

	fs.err = errors.New("locked")
	if _, err := job.Run(context.Background()); err == nil {
		t.Error("expected error from store")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := FromConfig(cfg, &fakeStore{}, nil)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Name != JobExtract || jobs[1].Name != JobPrune {
		t.Errorf("jobs = %+v", jobs)
	}
	if jobs[0].Expr != config.DefaultExtractCron {
		t.Errorf("extract expr = %q", jobs[0].Expr)
	}

	cfg.Schedule.PruneCron = "every tuesday"
	if _, err := FromConfig(cfg, &fakeStore{}, nil); err == nil {
		t.Error("expected error for invalid prune expression")
	}
}
