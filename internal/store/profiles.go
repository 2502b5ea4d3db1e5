package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Profile sides.
const (
	SidePeer = "peer"
	SideSelf = "self"
)

type Profile struct {
	Side      string
	Name      string
	City      string
	Status    string
	Job       string
	Gender    string
	UpdatedAt time.Time
}

// Fact is a dialog detail such as ("sucht", "festes") or ("telefonnummer", "bekannt").
type Fact struct {
	Key        string
	Value      string
	Confidence float64
	CreatedAt  time.Time
}

// UpsertProfile merges p into the stored profile. Empty fields never
// overwrite known values.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	if p.Side == "" {
		p.Side = SidePeer
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (side, name, city, status, job, gender, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(side) DO UPDATE SET
				name   = CASE WHEN excluded.name   != '' THEN excluded.name   ELSE profiles.name   END,
				city   = CASE WHEN excluded.city   != '' THEN excluded.city   ELSE profiles.city   END,
				status = CASE WHEN excluded.status != '' THEN excluded.status ELSE profiles.status END,
				job    = CASE WHEN excluded.job    != '' THEN excluded.job    ELSE profiles.job    END,
				gender = CASE WHEN excluded.gender != '' THEN excluded.gender ELSE profiles.gender END,
				updated_at = excluded.updated_at
		`, p.Side, strings.TrimSpace(p.Name), strings.TrimSpace(p.City), strings.TrimSpace(p.Status),
			strings.TrimSpace(p.Job), strings.TrimSpace(p.Gender), formatTime(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
}

func (s *Store) Profile(ctx context.Context, side string) (Profile, error) {
	var p Profile
	var updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT side, name, city, status, job, gender, updated_at FROM profiles WHERE side = ?
	`, side).Scan(&p.Side, &p.Name, &p.City, &p.Status, &p.Job, &p.Gender, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// AddDialogInfo records f once per key/value, keeping the highest confidence.
func (s *Store) AddDialogInfo(ctx context.Context, f Fact) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dialog_info (key, value, confidence, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key, value) DO UPDATE SET
				confidence = MAX(dialog_info.confidence, excluded.confidence)
		`, f.Key, f.Value, f.Confidence, formatTime(f.CreatedAt))
		if err != nil {
			return fmt.Errorf("add dialog info: %w", err)
		}
		return nil
	})
}

// DialogInfo returns all facts ordered by key.
func (s *Store) DialogInfo(ctx context.Context) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, confidence, created_at FROM dialog_info ORDER BY key ASC, value ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dialog info: %w", err)
	}
	defer rows.Close()

	facts := make([]Fact, 0)
	for rows.Next() {
		var f Fact
		var created string
		if err := rows.Scan(&f.Key, &f.Value, &f.Confidence, &created); err != nil {
			return nil, fmt.Errorf("scan dialog info: %w", err)
		}
		f.CreatedAt = parseTime(created)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dialog info: %w", err)
	}
	return facts, nil
}

// Stats summarises the archive for the status command.
type Stats struct {
	Messages      int
	Inbound       int
	Outbound      int
	Drafts        int
	BlockedDrafts int
	Facts         int
	LastDraft     time.Time
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(1) FROM messages),
			(SELECT COUNT(1) FROM messages WHERE direction = 'in'),
			(SELECT COUNT(1) FROM messages WHERE direction = 'out'),
			(SELECT COUNT(1) FROM drafts),
			(SELECT COUNT(1) FROM drafts WHERE blocked = 1),
			(SELECT COUNT(1) FROM dialog_info),
			(SELECT MAX(created_at) FROM drafts)
	`).Scan(&st.Messages, &st.Inbound, &st.Outbound, &st.Drafts, &st.BlockedDrafts, &st.Facts, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if last.Valid {
		st.LastDraft = parseTime(last.String)
	}
	return st, nil
}
