// Package pilot runs the poll loop: each tick reads the thread, lets the
// tracker decide whether a reply is due, and places a filtered draft into
// the chat input for the operator to send.
package pilot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/replypilot/internal/intent"
	"github.com/stellarlinkco/replypilot/internal/notify"
	"github.com/stellarlinkco/replypilot/internal/policy"
	"github.com/stellarlinkco/replypilot/internal/provider"
	"github.com/stellarlinkco/replypilot/internal/retry"
	"github.com/stellarlinkco/replypilot/internal/store"
	"github.com/stellarlinkco/replypilot/internal/thread"
	"github.com/stellarlinkco/replypilot/internal/tracker"
)

var (
	ErrTooManyFailures = errors.New("too many consecutive tick failures")
	errSnapshot        = errors.New("snapshot failed")
	errWriteBack       = errors.New("write-back failed")
)

// Chat is the browser side of the loop.
type Chat interface {
	Snapshot(ctx context.Context) ([]thread.Record, error)
	FillDraft(ctx context.Context, text string) error
}

// Replier generates a reply or reports absence once its retry budget is spent.
type Replier interface {
	Name() string
	Reply(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, bool)
}

// Store archives snapshots and drafts and serves the known peer profile.
type Store interface {
	ArchiveSnapshot(ctx context.Context, records []thread.Record) (int, error)
	Profile(ctx context.Context, side string) (store.Profile, error)
	DialogInfo(ctx context.Context) ([]store.Fact, error)
	SaveDraft(ctx context.Context, d store.Draft) error
}

// Task is background work that runs alongside the loop until ctx is done.
type Task func(ctx context.Context) error

type Options struct {
	Chat       Chat
	Replier    Replier
	Store      Store
	Notifier   notify.Notifier
	Classifier *intent.Classifier
	Filter     *policy.Filter
	Logger     *zap.Logger

	PollInterval           time.Duration
	FollowUpAfter          time.Duration
	Location               *time.Location
	HistoryLimit           int
	ContextTurns           int
	MaxConsecutiveFailures int
	BrowserRetry           retry.Policy

	Tasks []Task

	Now        func() time.Time
	Sleep      retry.Sleeper
	SignalChan chan os.Signal // for testing signal handling
}

// Outcome describes what one tick did.
type Outcome struct {
	Event tracker.Event
	// Draft is nil when no reply was generated.
	Draft *store.Draft
}

type Pilot struct {
	opts    Options
	runID   string
	tracker *tracker.Tracker
	logger  *zap.Logger
}

func New(opts Options) (*Pilot, error) {
	if opts.Chat == nil {
		return nil, fmt.Errorf("pilot: chat is required")
	}
	if opts.Replier == nil {
		return nil, fmt.Errorf("pilot: replier is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.New(intent.Options{ContextTurns: opts.ContextTurns})
	}
	if opts.Filter == nil {
		opts.Filter = policy.New(policy.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = intent.DefaultContextTurns
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}

	runID := uuid.NewString()
	return &Pilot{
		opts:    opts,
		runID:   runID,
		tracker: tracker.New(tracker.Options{FollowUpAfter: opts.FollowUpAfter, Location: opts.Location}),
		logger:  opts.Logger.Named("pilot").With(zap.String("run_id", runID)),
	}, nil
}

func (p *Pilot) RunID() string { return p.runID }

// Run drives the loop and the background tasks until ctx is done, a
// termination signal arrives or too many ticks fail in a row.
func (p *Pilot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := p.opts.SignalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			p.logger.Info("shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	for _, task := range p.opts.Tasks {
		g.Go(func() error { return task(gctx) })
	}
	g.Go(func() error { return p.loop(gctx) })

	err := g.Wait()
	p.logger.Info("stopped")
	return err
}

func (p *Pilot) loop(ctx context.Context) error {
	p.logger.Info("loop started",
		zap.String("provider", p.opts.Replier.Name()),
		zap.Duration("poll_interval", p.opts.PollInterval))

	failures := 0
	for {
		_, err := p.Tick(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			failures++
			p.logger.Warn("tick failed",
				zap.Error(err),
				zap.Int("consecutive", failures),
				zap.Int("max", p.opts.MaxConsecutiveFailures))
			if failures > p.opts.MaxConsecutiveFailures {
				return fmt.Errorf("%w: %d in a row", ErrTooManyFailures, failures)
			}
		} else {
			failures = 0
		}
		if !p.opts.Sleep(ctx, p.opts.PollInterval) {
			return nil
		}
	}
}

// Tick runs one poll cycle. It returns an error only for failures that count
// against the consecutive-failure budget: an unreadable thread or a draft
// that could not be placed.
func (p *Pilot) Tick(ctx context.Context) (Outcome, error) {
	records, ok := retry.DoWith(ctx, p.opts.BrowserRetry, p.opts.Sleep, p.observe("snapshot"), p.opts.Chat.Snapshot)
	if !ok {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, errSnapshot
	}
	p.archive(ctx, records)

	now := p.opts.Now()
	ev := p.tracker.Observe(records, now)
	out := Outcome{Event: ev}
	switch ev.Kind {
	case tracker.KindNone:
		return out, nil
	case tracker.KindNoReplyInbound:
		p.logger.Debug("blank inbound message, no reply")
		return out, nil
	}

	log := p.logger.With(zap.Stringer("event", ev.Kind))
	var inbound string
	var res intent.Result
	if ev.Kind == tracker.KindNewInbound {
		inbound = strings.TrimSpace(ev.Record.Text)
		res = p.opts.Classifier.Classify(inbound, thread.ContextWindow(records, p.opts.ContextTurns))
		log = log.With(zap.String("intent", string(res.Intent)))
	} else {
		log = log.With(zap.Duration("elapsed", ev.Elapsed))
	}
	log.Info("reply due")

	pc := provider.PromptContext{
		Now:       now,
		ThreadLen: len(records),
		FollowUp:  ev.Kind == tracker.KindFollowUp,
		Intent:    res.Intent,
	}
	p.peerContext(ctx, &pc)

	history := thread.History(records, p.opts.HistoryLimit)
	raw, ok := p.opts.Replier.Reply(ctx, history, provider.SystemRules(pc), inbound)
	if !ok {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		log.Warn("no reply generated")
		return out, nil
	}

	filtered := p.opts.Filter.Enforce(raw)
	draft := &store.Draft{
		ID:        uuid.NewString(),
		RunID:     p.runID,
		EventKind: ev.Kind.String(),
		Intent:    string(res.Intent),
		Provider:  p.opts.Replier.Name(),
		RawText:   raw,
		FinalText: filtered.Text,
		Flags:     filtered.Flags.Fired(),
		Blocked:   filtered.Blocked,
		CreatedAt: now,
	}
	out.Draft = draft

	var tickErr error
	if !filtered.Blocked {
		_, ok := retry.DoWith(ctx, p.opts.BrowserRetry, p.opts.Sleep, p.observe("write-back"), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.opts.Chat.FillDraft(ctx, filtered.Text)
		})
		draft.Written = ok
		if !ok {
			tickErr = errWriteBack
			if err := ctx.Err(); err != nil {
				tickErr = err
			}
		}
	}

	p.report(ctx, log, draft, inbound, filtered)
	return out, tickErr
}

func (p *Pilot) observe(op string) retry.Observer {
	return func(attempt int, err error) {
		p.logger.Warn(op+" attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.opts.BrowserRetry.MaxRetries+1),
			zap.Error(err))
	}
}

func (p *Pilot) archive(ctx context.Context, records []thread.Record) {
	if p.opts.Store == nil {
		return
	}
	n, err := p.opts.Store.ArchiveSnapshot(ctx, records)
	if err != nil {
		p.logger.Warn("archive snapshot", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Debug("archived messages", zap.Int("new", n))
	}
}

func (p *Pilot) peerContext(ctx context.Context, pc *provider.PromptContext) {
	if p.opts.Store == nil {
		return
	}
	prof, err := p.opts.Store.Profile(ctx, store.SidePeer)
	switch {
	case err == nil:
		pc.Peer = &prof
	case !errors.Is(err, store.ErrNotFound):
		p.logger.Warn("load peer profile", zap.Error(err))
	}
	facts, err := p.opts.Store.DialogInfo(ctx)
	if err != nil {
		p.logger.Warn("load dialog info", zap.Error(err))
		return
	}
	pc.Facts = facts
}

func (p *Pilot) report(ctx context.Context, log *zap.Logger, d *store.Draft, inbound string, res policy.Result) {
	fields := []zap.Field{
		zap.String("draft_id", d.ID),
		zap.Strings("flags", d.Flags),
		zap.Int("passes", res.Passes),
		zap.Bool("blocked", d.Blocked),
		zap.Bool("written", d.Written),
	}
	switch {
	case d.Blocked:
		log.Warn("draft blocked", fields...)
	case d.Written:
		log.Info("draft ready", append(fields, zap.String("text", d.FinalText))...)
	default:
		log.Warn("draft not written", fields...)
	}

	if err := p.opts.Notifier.Notify(ctx, notify.Report{
		RunID:    d.RunID,
		DraftID:  d.ID,
		Event:    d.EventKind,
		Intent:   d.Intent,
		Provider: d.Provider,
		Inbound:  inbound,
		Text:     d.FinalText,
		Flags:    d.Flags,
		Blocked:  d.Blocked,
		Written:  d.Written,
	}); err != nil {
		log.Warn("notify", zap.Error(err))
	}

	if p.opts.Store == nil {
		return
	}
	// A shutdown mid-tick still archives the draft that was just placed.
	if err := p.opts.Store.SaveDraft(context.WithoutCancel(ctx), *d); err != nil {
		log.Warn("save draft", zap.Error(err))
	}
}
