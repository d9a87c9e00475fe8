package main

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode stored events missing coordinates",
	Long: `Finds stored events that have a location but no coordinates and
resolves them through the geocoder. Useful after a location edit or when
earlier geocoding attempts failed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		events, err := env.store.ListEventsMissingCoordinates(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "backfill: list events")
		}
		if len(events) == 0 {
			fmt.Println("No events missing coordinates")
			return nil
		}

		log := zap.L().With(zap.String("command", "backfill"))
		log.Info("starting geocode backfill",
			zap.Int("events", len(events)),
			zap.Int("concurrency", cfg.Backfill.Concurrency),
		)

		var resolved, unresolved atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Backfill.Concurrency)
		for _, ev := range events {
			g.Go(func() error {
				coords := env.geocoder.Resolve(gctx, *ev.Location)
				if coords == nil {
					unresolved.Add(1)
					return nil
				}
				if err := env.store.SetEventCoordinates(gctx, ev.Title, *coords); err != nil {
					return eris.Wrapf(err, "backfill: set coordinates for %q", ev.Title)
				}
				resolved.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Backfill complete: %d geocoded, %d unresolved\n",
			resolved.Load(), unresolved.Load())
		return nil
	},
}

func init() {
	backfillCmd.Flags().Int("limit", 500, "maximum number of events to geocode")
	rootCmd.AddCommand(backfillCmd)
}
