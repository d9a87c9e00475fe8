package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-pulse/events-sync/internal/fetcher"
	"github.com/campus-pulse/events-sync/internal/geocode"
	"github.com/campus-pulse/events-sync/internal/reconcile"
	"github.com/campus-pulse/events-sync/internal/store"
	"github.com/campus-pulse/events-sync/pkg/coveo"
	"github.com/campus-pulse/events-sync/pkg/places"
)

// app bundles the wired pipeline for a single command invocation.
type app struct {
	store    store.Store
	fetcher  *fetcher.Fetcher
	geocoder *geocode.Geocoder
	syncer   *reconcile.Syncer
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initApp opens the store, runs migrations, and wires the fetch, geocode,
// and reconcile stages together.
func initApp(ctx context.Context) (*app, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	search := coveo.NewClient(cfg.Events.BaseURL, cfg.Events.BearerToken,
		coveo.WithSearchHub(cfg.Events.SearchHub),
		coveo.WithPipeline(cfg.Events.Pipeline),
		coveo.WithRateLimit(cfg.Events.RateRPS),
	)
	f := fetcher.New(search,
		fetcher.WithPageSize(cfg.Events.PageSize),
		fetcher.WithBeginDate(cfg.Events.BeginDate),
		fetcher.WithSortField(cfg.Events.SortField),
	)

	rect := places.Rectangle{
		Low:  places.LatLng{Latitude: cfg.Places.Bounds.Low.Lat, Longitude: cfg.Places.Bounds.Low.Lng},
		High: places.LatLng{Latitude: cfg.Places.Bounds.High.Lat, Longitude: cfg.Places.Bounds.High.Lng},
	}
	pc := places.NewClient(cfg.Places.BaseURL, cfg.Places.APIKey, cfg.Places.RegionCode, rect,
		places.WithRateLimit(cfg.Places.RateRPS),
	)
	geocoder := geocode.New(st, pc)

	return &app{
		store:    st,
		fetcher:  f,
		geocoder: geocoder,
		syncer:   reconcile.New(st, geocoder),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

// runSync executes one fetch-and-reconcile pass. The fetched count lets
// callers distinguish an empty feed from an all-skipped run.
func (a *app) runSync(ctx context.Context, fromDate string) (reconcile.Counts, int, error) {
	log := zap.L().With(zap.String("run_id", uuid.NewString()))
	log.Info("sync run starting", zap.String("from", fromDate))

	events := a.fetcher.Fetch(ctx, fromDate)
	if len(events) == 0 {
		log.Info("no events fetched")
		return reconcile.Counts{}, 0, nil
	}

	counts, err := a.syncer.Sync(ctx, events)
	if err != nil {
		return counts, len(events), err
	}

	log.Info("sync run complete",
		zap.Int("fetched", len(events)),
		zap.Int("added", counts.Added),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
	)
	return counts, len(events), nil
}
