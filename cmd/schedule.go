package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/anidataset/anidataset/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the fetch/export/upload pipeline on a cron schedule",
	Long: `Run the same pipeline as "run" on a cron schedule until interrupted.

The cron expression has a seconds field, e.g. "0 0 3 * * 1" for 03:00 every Monday.
A run that is still going when the next one is due makes the next one skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		expr, _ := cmd.Flags().GetString("cron")
		now, _ := cmd.Flags().GetBool("now")

		ctx, stop := stopContext(cmd.Context())
		defer stop()

		logger := cron.PrintfLogger(utils.Log)
		c := cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		)

		job := func() {
			if ctx.Err() != nil {
				return
			}
			utils.Log.Info("Starting scheduled run")
			start := time.Now()
			if err := runPipeline(ctx, cmd); err != nil {
				var ee *exitError
				if errors.As(err, &ee) {
					utils.Log.Errorf("Scheduled run ended with exit status %d: %v", ee.code, err)
				} else {
					utils.Log.Errorf("Scheduled run failed: %v", err)
				}
				return
			}
			utils.Log.Infof("Completed scheduled run in %s", time.Since(start).Round(time.Second))
		}

		if _, err := c.AddFunc(expr, job); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}

		if now {
			job()
		}

		c.Start()
		utils.Log.Infof("Scheduler started with schedule %q", expr)

		<-ctx.Done()
		utils.Log.Info("Stopping scheduler")
		<-c.Stop().Done()
		utils.Log.Info("Scheduler stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().String("cron", "0 0 3 * * 1", "Cron expression with seconds field")
	scheduleCmd.Flags().Bool("now", false, "Run once immediately before waiting for the schedule")
	addRunFlags(scheduleCmd)
}
