package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/collect"
	"dev.hon.one/l2scheme/common"
)

func newCollectCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "collect [address...]",
		Short: "Retrieve and import dumps from targets over SSH",
		Long: `Retrieve the configuration and MAC table of every target over SSH and import them.

Targets and credentials are read from the files named in the collect section of the config.
With addresses only those targets are collected.
With the memory storage driver the imports are discarded when the command exits, use --save to keep the dumps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load credentials and targets
			if !common.LoadCredentials() || !common.LoadTargets() {
				return fmt.Errorf("failed to load credentials or targets")
			}
			targets, err := selectTargets(common.GlobalTargets, args)
			if err != nil {
				return err
			}
			return runOnce(func(ctx context.Context, app *app) error {
				collector := collect.NewCollector(collect.NewSSHRunner(), app.pipeline, common.GlobalConfig.Import.Workers)
				if save || common.GlobalConfig.Collect.SaveDumps {
					collector.SetSaveDir(common.GlobalConfig.Import.DataDir)
				}
				results := collector.CollectAll(ctx, targets)
				if err := printJSON(results); err != nil {
					return err
				}
				failed := 0
				for _, result := range results {
					if !result.Success() {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d targets failed", failed, len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write retrieved dumps into the data directory")
	return cmd
}

func selectTargets(targets []common.Target, addresses []string) ([]common.Target, error) {
	if len(addresses) == 0 {
		return targets, nil
	}
	byAddress := make(map[string]common.Target, len(targets))
	for _, target := range targets {
		byAddress[target.Address] = target
	}
	selected := make([]common.Target, 0, len(addresses))
	for _, address := range addresses {
		target, ok := byAddress[address]
		if !ok {
			return nil, fmt.Errorf("unknown target %v", address)
		}
		selected = append(selected, target)
	}
	return selected, nil
}
