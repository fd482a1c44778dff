// Package store persists the session across in-place restarts. X clients
// stay connected while the manager re-executes, so window ids remain valid
// and tag membership, floating state and per-tag layout settings can be
// restored.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// ClientRow is a persisted client's placement.
type ClientRow struct {
	Window     uint32
	Tags       uint32
	Monitor    int
	Floating   bool
	Fullscreen bool
}

// MonitorRow is a persisted monitor's tag-set pair.
type MonitorRow struct {
	Index   int
	Tagset  [2]uint32
	SelTags int
	ShowBar bool
}

// TagStateRow is one tag's persisted layout settings.
type TagStateRow struct {
	Monitor      int
	Tag          int
	Layout       string
	MasterFactor float64
	NumMaster    int
	ScrollOffset int
}

// Session is a full snapshot.
type Session struct {
	Clients   []ClientRow
	Monitors  []MonitorRow
	TagStates []TagStateRow
}

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession replaces the stored snapshot atomically.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	for _, table := range []string{"clients", "monitors", "tag_states"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, c := range sess.Clients {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO clients(window, tags, monitor, floating, fullscreen)
VALUES (?, ?, ?, ?, ?)
`, c.Window, c.Tags, c.Monitor, boolToInt(c.Floating), boolToInt(c.Fullscreen)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert client 0x%x: %w", c.Window, err)
		}
	}
	for _, m := range sess.Monitors {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO monitors(idx, tagset0, tagset1, sel_tags, show_bar)
VALUES (?, ?, ?, ?, ?)
`, m.Index, m.Tagset[0], m.Tagset[1], m.SelTags, boolToInt(m.ShowBar)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert monitor %d: %w", m.Index, err)
		}
	}
	for _, t := range sess.TagStates {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tag_states(monitor, tag, layout, master_factor, num_master, scroll_offset)
VALUES (?, ?, ?, ?, ?, ?)
`, t.Monitor, t.Tag, t.Layout, t.MasterFactor, t.NumMaster, t.ScrollOffset); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert tag state %d/%d: %w", t.Monitor, t.Tag, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

// LoadSession returns the stored snapshot, or ErrNotFound when no session
// was saved.
func (s *Store) LoadSession(ctx context.Context) (Session, error) {
	var sess Session

	rows, err := s.db.QueryContext(ctx, `
SELECT window, tags, monitor, floating, fullscreen
FROM clients ORDER BY window ASC
`)
	if err != nil {
		return Session{}, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c                    ClientRow
			floating, fullscreen int
		)
		if err := rows.Scan(&c.Window, &c.Tags, &c.Monitor, &floating, &fullscreen); err != nil {
			return Session{}, fmt.Errorf("scan client: %w", err)
		}
		c.Floating = floating == 1
		c.Fullscreen = fullscreen == 1
		sess.Clients = append(sess.Clients, c)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("iter clients: %w", err)
	}

	monRows, err := s.db.QueryContext(ctx, `
SELECT idx, tagset0, tagset1, sel_tags, show_bar
FROM monitors ORDER BY idx ASC
`)
	if err != nil {
		return Session{}, fmt.Errorf("query monitors: %w", err)
	}
	defer monRows.Close()
	for monRows.Next() {
		var (
			m       MonitorRow
			showBar int
		)
		if err := monRows.Scan(&m.Index, &m.Tagset[0], &m.Tagset[1], &m.SelTags, &showBar); err != nil {
			return Session{}, fmt.Errorf("scan monitor: %w", err)
		}
		m.ShowBar = showBar == 1
		sess.Monitors = append(sess.Monitors, m)
	}
	if err := monRows.Err(); err != nil {
		return Session{}, fmt.Errorf("iter monitors: %w", err)
	}

	tagRows, err := s.db.QueryContext(ctx, `
SELECT monitor, tag, layout, master_factor, num_master, scroll_offset
FROM tag_states ORDER BY monitor ASC, tag ASC
`)
	if err != nil {
		return Session{}, fmt.Errorf("query tag states: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var t TagStateRow
		if err := tagRows.Scan(&t.Monitor, &t.Tag, &t.Layout, &t.MasterFactor, &t.NumMaster, &t.ScrollOffset); err != nil {
			return Session{}, fmt.Errorf("scan tag state: %w", err)
		}
		sess.TagStates = append(sess.TagStates, t)
	}
	if err := tagRows.Err(); err != nil {
		return Session{}, fmt.Errorf("iter tag states: %w", err)
	}

	if len(sess.Monitors) == 0 {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Clear drops the stored snapshot, used on clean shutdown so a fresh start
// does not restore stale placements.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"clients", "monitors", "tag_states"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
