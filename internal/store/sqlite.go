package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/campus-pulse/events-sync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	start_date  TIMESTAMP,
	end_date    TIMESTAMP,
	start_time  TEXT,
	end_time    TEXT,
	location    TEXT,
	lat         REAL,
	lng         REAL,
	image_url   TEXT NOT NULL,
	link        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS locations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_events_title ON events(title);
CREATE INDEX IF NOT EXISTS idx_locations_name_key ON locations(name_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteEventColumns = `title, description, start_date, end_date, start_time, end_time, location, lat, lng, image_url, link`

func (s *SQLiteStore) FindEventByTitle(ctx context.Context, title string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteEventColumns+` FROM events WHERE title = ? ORDER BY created_at LIMIT 1`,
		title,
	)
	ev, err := scanEventRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find event %q", title)
	}
	return ev, nil
}

func (s *SQLiteStore) InsertEvent(ctx context.Context, ev model.Event) error {
	var lat, lng any
	if ev.Coordinates != nil {
		lat, lng = ev.Coordinates.Lat, ev.Coordinates.Lng
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, `+sqliteEventColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.Title, ev.Description, ev.StartDate, ev.EndDate,
		ev.StartTime, ev.EndTime, ev.Location, lat, lng, ev.ImageURL, ev.Link,
		now, now,
	)
	return eris.Wrapf(err, "sqlite: insert event %q", ev.Title)
}

func (s *SQLiteStore) UpdateEventFields(ctx context.Context, title string, fields map[string]any) error {
	setClause, args, err := buildUpdateSet(fields, "?")
	if err != nil {
		return err
	}
	args = append(args, time.Now().UTC(), title)

	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET `+setClause+`, updated_at = ? WHERE title = ?`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update event %q", title)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("event not found: %s", title)
	}
	return nil
}

func (s *SQLiteStore) ListEventsMissingCoordinates(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteEventColumns+` FROM events
		 WHERE location IS NOT NULL AND trim(location) != '' AND lat IS NULL
		 ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events missing coordinates")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		events = append(events, *ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

func (s *SQLiteStore) SetEventCoordinates(ctx context.Context, title string, coords model.Coordinates) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET lat = ?, lng = ?, updated_at = ? WHERE title = ?`,
		coords.Lat, coords.Lng, time.Now().UTC(), title,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set coordinates for %q", title)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("event not found: %s", title)
	}
	return nil
}

func (s *SQLiteStore) FindLocation(ctx context.Context, nameKey string) (*model.Coordinates, error) {
	var c model.Coordinates
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lng FROM locations WHERE name_key = ? ORDER BY created_at LIMIT 1`,
		nameKey,
	).Scan(&c.Lat, &c.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find location %q", nameKey)
	}
	return &c, nil
}

func (s *SQLiteStore) InsertLocation(ctx context.Context, nameKey string, entry model.LocationCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (id, name, name_key, lat, lng, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), entry.Name, nameKey, entry.Coordinates.Lat, entry.Coordinates.Lng,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert location %q", entry.Name)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var description, startTime, endTime, location sql.NullString
	var startDate, endDate sql.NullTime
	var lat, lng sql.NullFloat64

	if err := row.Scan(&ev.Title, &description, &startDate, &endDate,
		&startTime, &endTime, &location, &lat, &lng, &ev.ImageURL, &ev.Link); err != nil {
		return nil, err
	}

	ev.Description = nullableString(description)
	ev.StartTime = nullableString(startTime)
	ev.EndTime = nullableString(endTime)
	ev.Location = nullableString(location)
	ev.StartDate = nullableTime(startDate)
	ev.EndDate = nullableTime(endDate)
	if lat.Valid && lng.Valid {
		ev.Coordinates = &model.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &ev, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// buildUpdateSet renders a deterministic SET clause from a field map.
// placeholder is "?" for SQLite; Postgres numbers its own placeholders.
func buildUpdateSet(fields map[string]any, placeholder string) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, eris.New("store: update with no fields")
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !eventColumns[col] {
			return "", nil, eris.Errorf("store: unknown event column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	clauses := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		ph := placeholder
		if placeholder != "?" {
			ph = fmt.Sprintf("$%d", i+1)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", col, ph))
		args = append(args, fields[col])
	}
	return strings.Join(clauses, ", "), args, nil
}
