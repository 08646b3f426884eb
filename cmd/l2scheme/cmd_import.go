package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/util"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import dumps into storage",
	}
	cmd.AddCommand(newImportConfigCmd(), newImportFdbCmd(), newImportDirCmd())
	return cmd
}

func newImportConfigCmd() *cobra.Command {
	var deviceIP string
	var deviceType string
	cmd := &cobra.Command{
		Use:   "config <file>",
		Short: "Import a configuration dump",
		Long: `Import a configuration dump of a D-Link switch or an EPON OLT.

The device IP defaults to the one in the file name, e.g. 192_168_1_10.cfg.
Without --type the dialect is detected from the content.
With the memory storage driver the import is discarded when the command exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ip, err := readDump(args[0], deviceIP)
			if err != nil {
				return err
			}
			return runOnce(func(ctx context.Context, app *app) error {
				if deviceType == "" {
					return printJSON(app.pipeline.ImportConfigAuto(ctx, text, ip))
				}
				return printJSON(app.pipeline.ImportConfig(ctx, text, ip, parsers.DeviceType(deviceType)))
			})
		},
	}
	cmd.Flags().StringVar(&deviceIP, "ip", "", "device IP address")
	cmd.Flags().StringVar(&deviceType, "type", "", "device type (OLT, D-Link)")
	return cmd
}

func newImportFdbCmd() *cobra.Command {
	var deviceIP string
	var format string
	cmd := &cobra.Command{
		Use:   "fdb <file>",
		Short: "Import a MAC table dump of an imported device",
		Long: `Import a MAC table dump of a device whose configuration was imported before.

The device must already be in storage. The memory storage driver starts empty
in every run, so use the postgres driver or "import dir" to import the
configuration and the table together.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ip, err := readDump(args[0], deviceIP)
			if err != nil {
				return err
			}
			warnEphemeralStore(cmd.CommandPath(), common.GlobalConfig.Storage)
			return runOnce(func(ctx context.Context, app *app) error {
				return printJSON(app.pipeline.ImportMacTable(ctx, text, ip, parsers.Format(format)))
			})
		},
	}
	cmd.Flags().StringVar(&deviceIP, "ip", "", "device IP address")
	cmd.Flags().StringVar(&format, "format", string(parsers.FormatAuto), "table format (auto, dlink, dlink_switch, olt, cisco)")
	return cmd
}

func newImportDirCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "dir [dir]",
		Short: "Import configs/ then macs/ of a data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := common.GlobalConfig.Import.DataDir
			if len(args) > 0 {
				dir = args[0]
			}
			if workers <= 0 {
				workers = common.GlobalConfig.Import.Workers
			}
			return runOnce(func(ctx context.Context, app *app) error {
				result, err := app.pipeline.ImportDirectory(ctx, dir, workers)
				if err != nil {
					return err
				}
				if err := printJSON(result); err != nil {
					return err
				}
				if result.Failed > 0 {
					return fmt.Errorf("%d of %d files failed", result.Failed, result.Failed+result.Succeeded)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent imports (default from config)")
	return cmd
}

// readDump - Read a dump file and resolve its device IP, from the flag or else the file name.
func readDump(path string, deviceIP string) (string, string, error) {
	if deviceIP == "" {
		ip, ok := util.IPFromFilename(path)
		if !ok {
			return "", "", fmt.Errorf("cannot derive device IP from %v, use --ip", path)
		}
		deviceIP = ip
	}
	text, err := util.ReadTextFile(path)
	if err != nil {
		return "", "", err
	}
	return text, deviceIP, nil
}
