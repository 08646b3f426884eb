// Package collect retrieves configuration and MAC table dumps from devices over SSH and imports them.
package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/importer"
	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/util"
)

// Commands - What to run on a target and how to read the output.
type Commands struct {
	Config     string
	MacTable   string
	DeviceType parsers.DeviceType
	Format     parsers.Format
}

var targetCommands = map[string]Commands{
	common.TargetTypeDLink: {
		Config:     "show config current_config",
		MacTable:   "show fdb",
		DeviceType: parsers.DeviceTypeDLink,
		Format:     parsers.FormatAuto,
	},
	common.TargetTypeOLT: {
		Config:     "show running-config",
		MacTable:   "show mac address-table",
		DeviceType: parsers.DeviceTypeOLT,
		Format:     parsers.FormatOLT,
	},
}

// CommandsFor - Commands of a target type.
func CommandsFor(targetType string) (Commands, error) {
	commands, ok := targetCommands[targetType]
	if !ok {
		return Commands{}, fmt.Errorf("target type %q: %w", targetType, util.ErrUnsupportedDevice)
	}
	return commands, nil
}

// TargetResult - Outcome of collecting one target.
type TargetResult struct {
	Address  string                   `json:"address"`
	Config   *importer.ConfigResult   `json:"config,omitempty"`
	MacTable *importer.MacTableResult `json:"mac_table,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Duration time.Duration            `json:"duration"`
}

// Success - Whether both dumps were retrieved and imported.
func (result TargetResult) Success() bool {
	return result.Error == "" && result.Config != nil && result.Config.Success &&
		result.MacTable != nil && result.MacTable.Success
}

// Collector - Retrieves dumps and hands them to the import pipeline.
type Collector struct {
	runner   Runner
	pipeline *importer.Pipeline
	workers  int
	saveDir  string
}

// NewCollector - Create a collector running up to workers targets at once.
func NewCollector(runner Runner, pipeline *importer.Pipeline, workers int) *Collector {
	if workers < 1 {
		workers = 1
	}
	return &Collector{runner: runner, pipeline: pipeline, workers: workers}
}

// SetSaveDir - Also write every retrieved dump into the data directory layout under dir.
func (collector *Collector) SetSaveDir(dir string) {
	collector.saveDir = dir
}

// CollectAll - Collect every target. Results are in target order.
func (collector *Collector) CollectAll(ctx context.Context, targets []common.Target) []TargetResult {
	log.WithField("targets", len(targets)).Trace("Collecting all targets")
	results := make([]TargetResult, len(targets))
	workerPool := pool.New().WithMaxGoroutines(collector.workers)
	for i, target := range targets {
		workerPool.Go(func() {
			results[i] = collector.Collect(ctx, target)
		})
	}
	workerPool.Wait()
	return results
}

// Collect - Retrieve and import the configuration, then the MAC table, of a target.
func (collector *Collector) Collect(ctx context.Context, target common.Target) TargetResult {
	log.WithFields(log.Fields{
		"device": target.Address,
	}).Trace("Collecting device")
	startTime := time.Now()
	result := collector.collect(ctx, target)
	result.Duration = time.Since(startTime)
	return result
}

func (collector *Collector) collect(ctx context.Context, target common.Target) TargetResult {
	result := TargetResult{Address: target.Address}
	commands, err := CommandsFor(target.DeviceType)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	configText, err := collector.runner.Run(ctx, target, commands.Config)
	if err != nil {
		return collector.failed(target, result, "Failed to retrieve configuration", err)
	}
	collector.saveDump(target, importer.ConfigsDir, ".cfg", configText)
	result.Config = collector.pipeline.ImportConfig(ctx, configText, target.Address, commands.DeviceType)
	if !result.Config.Success {
		return result
	}

	macText, err := collector.runner.Run(ctx, target, commands.MacTable)
	if err != nil {
		return collector.failed(target, result, "Failed to retrieve MAC table", err)
	}
	collector.saveDump(target, importer.MacTablesDir, ".mac", macText)
	result.MacTable = collector.pipeline.ImportMacTable(ctx, macText, target.Address, commands.Format)
	return result
}

func (collector *Collector) failed(target common.Target, result TargetResult, message string, err error) TargetResult {
	log.WithError(err).WithFields(log.Fields{
		"device": target.Address,
	}).Warn(message)
	result.Error = fmt.Sprintf("%s: %v", message, err)
	return result
}

func (collector *Collector) saveDump(target common.Target, subdir string, extension string, text string) {
	if collector.saveDir == "" {
		return
	}
	dir := filepath.Join(collector.saveDir, subdir)
	path := filepath.Join(dir, util.UnderscoreIP(target.Address)+extension)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).WithField("path", dir).Warn("Failed to create dump directory")
		return
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to save dump")
	}
}
