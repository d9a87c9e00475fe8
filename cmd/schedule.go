package main

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the sync on a cron schedule",
	Long: `Runs the fetch-and-reconcile pass on the configured cron schedule
(default daily at 02:00) until interrupted. A failed run is logged and the
schedule keeps going.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		spec, _ := cmd.Flags().GetString("cron")
		if spec == "" {
			spec = cfg.Schedule.Spec
		}

		log := zap.L().With(zap.String("command", "schedule"))

		c := cron.New()
		_, err = c.AddFunc(spec, func() {
			if _, _, runErr := env.runSync(ctx, ""); runErr != nil {
				log.Error("scheduled sync failed", zap.Error(runErr))
			}
		})
		if err != nil {
			return eris.Wrapf(err, "schedule: parse cron spec %q", spec)
		}

		log.Info("scheduler started", zap.String("spec", spec))
		c.Start()

		<-ctx.Done()
		log.Info("scheduler stopping")

		// Let an in-flight run finish before returning.
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron spec (default from config)")
	rootCmd.AddCommand(scheduleCmd)
}
