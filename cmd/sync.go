package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one fetch-and-reconcile pass",
	Long: `Fetch all upcoming events from the search API and reconcile them into
the store: new titles are inserted (geocoding their locations), changed
records are patched field by field, unchanged records are skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		from, _ := cmd.Flags().GetString("from")

		counts, fetched, err := env.runSync(ctx, from)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		if fetched == 0 {
			fmt.Println("No events to process")
			return nil
		}
		fmt.Printf("Processed %d events: %d added, %d updated, %d skipped\n",
			counts.Processed, counts.Added, counts.Updated, counts.Skipped)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("from", "", "earliest event start date, YYYY/MM/DD (default from config)")
	rootCmd.AddCommand(syncCmd)
}
