package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/mac"
	"dev.hon.one/l2scheme/topology"
	"dev.hon.one/l2scheme/util"
)

func newAnalyzeCmd() *cobra.Command {
	var macAddress string
	var flat bool
	cmd := &cobra.Command{
		Use:   "analyze <vlan>",
		Short: "Re-run topology analysis of a VLAN",
		Long: `Re-run topology analysis of a VLAN and show where every address is learned.

With --mac only the sightings of that address are classified.
The default output groups sightings by device and port; --flat lists them per address.
Analysis reads earlier imports from storage, which the memory storage driver does not keep between runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vlanID, err := strconv.Atoi(args[0])
			if err != nil || !util.ValidVLANID(vlanID) {
				return fmt.Errorf("invalid VLAN ID %q", args[0])
			}
			warnEphemeralStore(cmd.CommandPath(), common.GlobalConfig.Storage)
			return runOnce(func(ctx context.Context, app *app) error {
				if macAddress != "" {
					normalized, ok := mac.Normalize(macAddress)
					if !ok {
						return fmt.Errorf("invalid MAC address %q", macAddress)
					}
					locations, err := app.analyzer.AnalyzeMacLocation(ctx, normalized, vlanID)
					if err != nil {
						return err
					}
					return printJSON(topology.MacTopology{MacAddress: normalized, Locations: locations})
				}

				macTopology, err := app.pipeline.AnalyzeVlan(ctx, vlanID)
				if err != nil {
					return err
				}
				if flat {
					return printJSON(macTopology)
				}
				return printJSON(topology.GroupByDevice(vlanID, macTopology))
			})
		},
	}
	cmd.Flags().StringVar(&macAddress, "mac", "", "only classify this address")
	cmd.Flags().BoolVar(&flat, "flat", false, "list sightings per address")
	return cmd
}
