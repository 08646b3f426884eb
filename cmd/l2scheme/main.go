// l2scheme - Layer 2 topology from switch and OLT dumps.
//
// Usage:
//
//	l2scheme serve                          Serve status, stats and metrics over HTTP
//	l2scheme import config <file> [--ip]    Import a configuration dump
//	l2scheme import fdb <file> [--ip]       Import a MAC table dump
//	l2scheme import dir [dir]               Import configs/ then macs/ of a data directory
//	l2scheme inspect config|fdb <file>      Parse a dump without storing it
//	l2scheme analyze <vlan> [--mac]         Re-run topology analysis of a VLAN
//	l2scheme collect                        Retrieve and import dumps from all targets over SSH
//	l2scheme stats                          Show per-device counters
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/common"
)

var (
	debug      bool
	configPath string
	logFormat  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               common.AppName,
	Short:             "Layer 2 topology from switch and OLT dumps",
	Version:           common.AppVersion,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch logFormat {
		case "text":
		case "json":
			log.SetFormatter(&log.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %q", logFormat)
		}
		if debug {
			log.SetLevel(log.TraceLevel)
			log.Info("Debug mode enabled")
		}
		if !common.LoadConfig(configPath) {
			return fmt.Errorf("failed to load config %v", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show debug messages.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json).")

	rootCmd.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newInspectCmd(),
		newAnalyzeCmd(),
		newCollectCmd(),
		newStatsCmd(),
	)
}
