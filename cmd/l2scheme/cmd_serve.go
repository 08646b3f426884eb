package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/http"
	"dev.hon.one/l2scheme/util"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve status, device stats and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Infof("Starting %v version %v", common.AppName, common.AppVersion)

			// Setup internal shutdown mechanism
			shutdown := util.NewShutdownChannelDistributor(notifySignals())
			app, err := openApp(shutdown.Context(), shutdown)
			if err != nil {
				return err
			}
			defer app.Close()

			// Run internal services in background and wait for all to finish
			http.StartServer(&app.waitGroup, shutdown, http.NewHandler(app.registry, app.pipeline))
			app.waitGroup.Wait()
			return nil
		},
	}
}
