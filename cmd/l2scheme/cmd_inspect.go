package main

import (
	"github.com/spf13/cobra"

	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/util"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse a dump without storing it",
	}
	cmd.AddCommand(newInspectConfigCmd(), newInspectFdbCmd())
	return cmd
}

func newInspectConfigCmd() *cobra.Command {
	var deviceIP string
	cmd := &cobra.Command{
		Use:   "config <file>",
		Short: "Show the detected dialect and parsed records of a configuration dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ip, err := readDump(args[0], deviceIP)
			if err != nil {
				return err
			}
			deviceType := parsers.DetectDeviceType(text)
			config, ok := parsers.ParseConfig(deviceType, text, ip)
			if !ok {
				return printJSON(map[string]interface{}{"device_type": deviceType, "supported": false})
			}
			return printJSON(map[string]interface{}{"device_type": deviceType, "supported": true, "config": config})
		},
	}
	cmd.Flags().StringVar(&deviceIP, "ip", "", "device IP address")
	return cmd
}

func newInspectFdbCmd() *cobra.Command {
	var format string
	var showEntries bool
	cmd := &cobra.Command{
		Use:   "fdb <file>",
		Short: "Show the detected dialect and a summary of a MAC table dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := util.ReadTextFile(args[0])
			if err != nil {
				return err
			}
			parser, err := parsers.ParserForFormat(parsers.Format(format))
			if err != nil {
				return err
			}
			if parser == nil {
				parser = parsers.DetectFdbFormat(text)
			}
			var entries []parsers.Entry
			parserName := "none"
			if parser != nil {
				parserName = parser.Name()
				entries = parser.Parse(text, nil)
			} else {
				entries = parsers.ParseFdb(text, nil)
			}
			output := map[string]interface{}{
				"parser":  parserName,
				"summary": parsers.Summarize(entries),
			}
			if showEntries {
				output["entries"] = entries
			}
			return printJSON(output)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(parsers.FormatAuto), "table format (auto, dlink, dlink_switch, olt, cisco)")
	cmd.Flags().BoolVar(&showEntries, "entries", false, "include every parsed entry")
	return cmd
}
