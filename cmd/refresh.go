package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	refreshDaysOld int
	refreshLimit   int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-run the gauntlet for stale prospects",
	Long:  "Finds prospects whose last run is older than --days-old and re-qualifies up to --limit of them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initGauntlet(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		daysOld := refreshDaysOld
		if daysOld <= 0 {
			daysOld = cfg.Refresh.DaysOld
		}
		limit := refreshLimit
		if limit <= 0 {
			limit = cfg.Refresh.Limit
		}

		summary, err := env.Refresher.Refresh(ctx, daysOld, limit)
		if err != nil {
			return eris.Wrap(err, "refresh")
		}

		zap.L().Info("refresh complete",
			zap.Int("total_needing_refresh", summary.TotalNeedingRefresh),
			zap.Int("enqueued", summary.Enqueued),
			zap.Int("errors", len(summary.Errors)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshDaysOld, "days-old", 0, "staleness threshold in days (default from config)")
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "max prospects to refresh per batch (default from config)")
	rootCmd.AddCommand(refreshCmd)
}
