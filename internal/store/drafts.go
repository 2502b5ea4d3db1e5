package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Draft is a generated reply as surfaced to the operator.
type Draft struct {
	ID        string
	RunID     string
	EventKind string
	Intent    string
	Provider  string
	RawText   string
	FinalText string
	Flags     []string
	Blocked   bool
	Written   bool
	CreatedAt time.Time
}

func (s *Store) SaveDraft(ctx context.Context, d Draft) error {
	if d.ID == "" {
		return fmt.Errorf("save draft: empty id")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO drafts (id, run_id, event_kind, intent, provider, raw_text, final_text, flags, blocked, written, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, d.RunID, d.EventKind, d.Intent, d.Provider, d.RawText, d.FinalText,
			strings.Join(d.Flags, ","), boolToInt(d.Blocked), boolToInt(d.Written), formatTime(d.CreatedAt))
		if err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return nil
	})
}

// RecentDrafts returns up to limit drafts, newest first.
func (s *Store) RecentDrafts(ctx context.Context, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, event_kind, intent, provider, raw_text, final_text, flags, blocked, written, created_at
		FROM drafts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]Draft, 0)
	for rows.Next() {
		var d Draft
		var flags, created string
		var blocked, written int
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventKind, &d.Intent, &d.Provider, &d.RawText, &d.FinalText,
			&flags, &blocked, &written, &created); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if flags != "" {
			d.Flags = strings.Split(flags, ",")
		}
		d.Blocked = blocked == 1
		d.Written = written == 1
		d.CreatedAt = parseTime(created)
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return drafts, nil
}

// PruneDrafts deletes drafts created before cutoff.
func (s *Store) PruneDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE created_at < ?`, formatTime(cutoff))
		if err != nil {
			return fmt.Errorf("prune drafts: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}
