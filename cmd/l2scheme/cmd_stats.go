package main

import (
	"context"

	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/common"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-device counters",
		Long: `Show per-device counters of stored devices.

Counters come from earlier imports, which the memory storage driver does not keep between runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			warnEphemeralStore(cmd.CommandPath(), common.GlobalConfig.Storage)
			return runOnce(func(ctx context.Context, app *app) error {
				stats, err := app.pipeline.DeviceStats(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}
