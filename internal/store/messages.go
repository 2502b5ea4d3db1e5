package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stellarlinkco/replypilot/internal/thread"
)

// Message is one archived record.
type Message struct {
	ID        int64
	Position  int
	Direction thread.Direction
	Text      string
	RawTS     string
	FirstSeen string
}

// ArchiveSnapshot stores every record of a snapshot. Records already seen at
// the same position are skipped, so re-reading an unchanged tail adds nothing.
func (s *Store) ArchiveSnapshot(ctx context.Context, records []thread.Record) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO messages (position, direction, text, raw_ts)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare archive: %w", err)
		}
		defer stmt.Close()

		for i, r := range records {
			res, err := stmt.ExecContext(ctx, i, string(thread.DirectionOf(r)), r.Text, r.RawTimestamp)
			if err != nil {
				return fmt.Errorf("archive message %d: %w", i, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecentMessages returns up to limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 60
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, direction, text, raw_ts, first_seen FROM (
			SELECT * FROM messages ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0)
	for rows.Next() {
		var m Message
		var dir string
		if err := rows.Scan(&m.ID, &m.Position, &dir, &m.Text, &m.RawTS, &m.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Direction = thread.Direction(dir)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
