package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/profile"
)

// Job names.
const (
	JobExtract = "extract"
	JobPrune   = "prune"
)

// Pruner deletes drafts created before cutoff.
type Pruner interface {
	PruneDrafts(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is what the built-in jobs need from the archive.
type Store interface {
	profile.Source
	Pruner
}

// ExtractJob refreshes the peer profile from the last window messages.
func ExtractJob(expr string, src profile.Source, window int) Job {
	return Job{
		Name: JobExtract,
		Expr: expr,
		Run: func(ctx context.Context) (string, error) {
			res, err := profile.Run(ctx, src, window)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("scanned %d, facts %d", res.Scanned, len(res.Facts)), nil
		},
	}
}

// PruneJob removes drafts older than retention.
func PruneJob(expr string, p Pruner, retention time.Duration, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name: JobPrune,
		Expr: expr,
		Run: func(ctx context.Context) (string, error) {
			n, err := p.PruneDrafts(ctx, now().Add(-retention))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("pruned %d", n), nil
		},
	}
}

// FromConfig builds a Service carrying the extract and prune jobs.
func FromConfig(cfg *config.Config, st Store, logger *zap.Logger) (*Service, error) {
	s := New(logger)
	retention := time.Duration(cfg.Store.DraftRetentionDays) * 24 * time.Hour
	for _, job := range []Job{
		ExtractJob(cfg.Schedule.ExtractCron, st, cfg.Schedule.ExtractWindow),
		PruneJob(cfg.Schedule.PruneCron, st, retention, nil),
	} {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}
