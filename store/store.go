// Package store keeps the history of audits in SQLite.
//
// Each row holds the full report as JSON plus the screenshot it was computed
// from. IDs are UUIDv7, so lexical order is creation order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/designaudit/design"
)

// ErrNotFound is returned when no audit has the requested ID.
var ErrNotFound = errors.New("store: audit not found")

// DefaultListLimit applies when List is called with limit <= 0.
const DefaultListLimit = 50

// MaxListLimit caps List.
const MaxListLimit = 500

// Record is one stored audit.
type Record struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	Summary    string        `json:"summary"`
	Report     design.Report `json:"report"`
	Screenshot []byte        `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Entry is the listing view of an audit, without report or screenshot.
type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(gen func() string) Option { return func(s *Store) { s.newID = gen } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(s *Store) { s.busyTimeout = ms } }

// Store persists audits.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
	busyTimeout int
}

// Open opens (or creates) the audit database at path. Use ":memory:" for an
// ephemeral store.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		logger:      slog.Default(),
		newID:       func() string { return uuid.Must(uuid.NewV7()).String() },
		now:         time.Now,
		busyTimeout: 10_000,
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	db, err := openDB(path, s.busyTimeout)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("store: opened", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a report and returns the new record.
func (s *Store) Save(ctx context.Context, url string, report design.Report, screenshot []byte) (*Record, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("store: marshal report: %w", err)
	}

	rec := &Record{
		ID:         s.newID(),
		URL:        url,
		Summary:    report.Summary,
		Report:     report,
		Screenshot: screenshot,
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, url, summary, report_json, screenshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Summary, string(data), screenshot, rec.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: insert audit: %w", err)
	}

	s.logger.Debug("store: audit saved", "id", rec.ID, "url", url)
	return rec, nil
}

// Get returns the audit with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var (
		rec     Record
		data    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, summary, report_json, screenshot, created_at FROM audits WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.URL, &rec.Summary, &data, &rec.Screenshot, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get audit: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.Report); err != nil {
		return nil, fmt.Errorf("store: decode report %s: %w", id, err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}

// List returns the most recent audits, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, summary, created_at FROM audits ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list audits: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.URL, &e.Summary, &created); err != nil {
			return nil, fmt.Errorf("store: scan audit: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an audit. It returns ErrNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete audit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete audit: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
