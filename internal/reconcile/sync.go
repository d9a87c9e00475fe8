// Package reconcile upserts fetched events into the store: insert new
// titles, patch changed fields, skip unchanged records.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-pulse/events-sync/internal/model"
)

// EventStore is the slice of the store the synchronizer needs.
type EventStore interface {
	FindEventByTitle(ctx context.Context, title string) (*model.Event, error)
	InsertEvent(ctx context.Context, ev model.Event) error
	UpdateEventFields(ctx context.Context, title string, fields map[string]any) error
}

// Resolver supplies coordinates for a location name. Invoked only when an
// event is first inserted; updates never re-geocode.
type Resolver interface {
	Resolve(ctx context.Context, name string) *model.Coordinates
}

// Counts summarizes a sync run. JSON tags match the trigger response body.
type Counts struct {
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// Syncer reconciles fetched events against the store.
type Syncer struct {
	store    EventStore
	geocoder Resolver
}

// New creates a Syncer.
func New(store EventStore, geocoder Resolver) *Syncer {
	return &Syncer{store: store, geocoder: geocoder}
}

// Sync upserts each event in fetch order, one at a time. Store errors abort
// the run; the counts accumulated so far are returned alongside the error.
func (s *Syncer) Sync(ctx context.Context, events []model.Event) (Counts, error) {
	log := zap.L().With(zap.String("component", "reconcile"))
	var counts Counts

	for _, ev := range events {
		select {
		case <-ctx.Done():
			return counts, ctx.Err()
		default:
		}

		stored, err := s.store.FindEventByTitle(ctx, ev.Title)
		if err != nil {
			return counts, eris.Wrapf(err, "reconcile: lookup %q", ev.Title)
		}

		if stored == nil {
			if ev.Location != nil {
				ev.Coordinates = s.geocoder.Resolve(ctx, *ev.Location)
			}
			if err := s.store.InsertEvent(ctx, ev); err != nil {
				return counts, eris.Wrapf(err, "reconcile: insert %q", ev.Title)
			}
			counts.Added++
			counts.Processed++
			continue
		}

		diff := ev.Diff(*stored)
		if len(diff) == 0 {
			log.Debug("no changes, skipping", zap.String("title", ev.Title))
			counts.Skipped++
			counts.Processed++
			continue
		}

		if err := s.store.UpdateEventFields(ctx, ev.Title, diff); err != nil {
			return counts, eris.Wrapf(err, "reconcile: update %q", ev.Title)
		}
		log.Info("updated event", zap.String("title", ev.Title), zap.Int("fields", len(diff)))
		counts.Updated++
		counts.Processed++
	}

	log.Info("sync complete",
		zap.Int("processed", counts.Processed),
		zap.Int("added", counts.Added),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
	)
	return counts, nil
}
