package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/campus-pulse/events-sync/internal/db"
	"github.com/campus-pulse/events-sync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title       TEXT NOT NULL,
	description TEXT,
	start_date  TIMESTAMPTZ,
	end_date    TIMESTAMPTZ,
	start_time  TEXT,
	end_time    TEXT,
	location    TEXT,
	lat         DOUBLE PRECISION,
	lng         DOUBLE PRECISION,
	image_url   TEXT NOT NULL,
	link        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_title ON events(title);
CREATE INDEX IF NOT EXISTS idx_events_missing_coords ON events(location) WHERE lat IS NULL;
CREATE INDEX IF NOT EXISTS idx_locations_name_key ON locations(name_key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgEventColumns = `title, description, start_date, end_date, start_time, end_time, location, lat, lng, image_url, link`

func (s *PostgresStore) FindEventByTitle(ctx context.Context, title string) (*model.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgEventColumns+` FROM events WHERE title = $1 ORDER BY created_at LIMIT 1`,
		title,
	)
	ev, err := scanPgEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find event %q", title)
	}
	return ev, nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev model.Event) error {
	var lat, lng *float64
	if ev.Coordinates != nil {
		lat, lng = &ev.Coordinates.Lat, &ev.Coordinates.Lng
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, `+pgEventColumns+`, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.New().String(), ev.Title, ev.Description, ev.StartDate, ev.EndDate,
		ev.StartTime, ev.EndTime, ev.Location, lat, lng, ev.ImageURL, ev.Link,
		now, now,
	)
	return eris.Wrapf(err, "postgres: insert event %q", ev.Title)
}

func (s *PostgresStore) UpdateEventFields(ctx context.Context, title string, fields map[string]any) error {
	setClause, args, err := buildUpdateSet(fields, "$")
	if err != nil {
		return err
	}
	n := len(args)
	query := fmt.Sprintf(`UPDATE events SET %s, updated_at = $%d WHERE title = $%d`,
		setClause, n+1, n+2)
	args = append(args, time.Now().UTC(), title)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update event %q", title)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("event not found: %s", title)
	}
	return nil
}

func (s *PostgresStore) ListEventsMissingCoordinates(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgEventColumns+` FROM events
		 WHERE location IS NOT NULL AND btrim(location) != '' AND lat IS NULL
		 ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events missing coordinates")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanPgEvent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		events = append(events, *ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) SetEventCoordinates(ctx context.Context, title string, coords model.Coordinates) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET lat = $1, lng = $2, updated_at = $3 WHERE title = $4`,
		coords.Lat, coords.Lng, time.Now().UTC(), title,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set coordinates for %q", title)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("event not found: %s", title)
	}
	return nil
}

func (s *PostgresStore) FindLocation(ctx context.Context, nameKey string) (*model.Coordinates, error) {
	var c model.Coordinates
	err := s.pool.QueryRow(ctx,
		`SELECT lat, lng FROM locations WHERE name_key = $1 ORDER BY created_at LIMIT 1`,
		nameKey,
	).Scan(&c.Lat, &c.Lng)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find location %q", nameKey)
	}
	return &c, nil
}

func (s *PostgresStore) InsertLocation(ctx context.Context, nameKey string, entry model.LocationCacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO locations (id, name, name_key, lat, lng, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), entry.Name, nameKey, entry.Coordinates.Lat, entry.Coordinates.Lng,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert location %q", entry.Name)
}

func scanPgEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	var lat, lng *float64

	if err := row.Scan(&ev.Title, &ev.Description, &ev.StartDate, &ev.EndDate,
		&ev.StartTime, &ev.EndTime, &ev.Location, &lat, &lng, &ev.ImageURL, &ev.Link); err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		ev.Coordinates = &model.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &ev, nil
}
