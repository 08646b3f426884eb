// Package importer parses configuration and MAC table dumps, stores them and triggers topology analysis.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/db"
	"dev.hon.one/l2scheme/mac"
	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/topology"
	"dev.hon.one/l2scheme/util"
)

// Pipeline - Import operations over a store. Safe for concurrent use.
type Pipeline struct {
	store    db.Store
	analyzer *topology.Analyzer
	metrics  *Metrics
	history  func(common.ImportEntry)
	now      func() time.Time
}

// NewPipeline - Create a pipeline. Metrics may be nil.
func NewPipeline(store db.Store, analyzer *topology.Analyzer, metrics *Metrics) *Pipeline {
	return &Pipeline{
		store:    store,
		analyzer: analyzer,
		metrics:  metrics,
		history:  func(common.ImportEntry) {},
		now:      time.Now,
	}
}

// SetHistory - Report every import outcome to the sink.
func (pipeline *Pipeline) SetHistory(sink func(common.ImportEntry)) {
	pipeline.history = sink
}

// ImportConfigAuto - Import a configuration dump of unknown dialect.
// Unrecognized content is tried as OLT, then as D-Link.
func (pipeline *Pipeline) ImportConfigAuto(ctx context.Context, text string, deviceIP string) *ConfigResult {
	deviceType := parsers.DetectDeviceType(text)
	log.WithFields(log.Fields{
		"device":      deviceIP,
		"device_type": deviceType,
	}).Debug("Detected configuration dialect")
	return pipeline.ImportConfig(ctx, text, deviceIP, deviceType)
}

// ImportConfig - Parse a configuration dump and store device, VLANs, ports and memberships in one transaction.
func (pipeline *Pipeline) ImportConfig(ctx context.Context, text string, deviceIP string, deviceType parsers.DeviceType) *ConfigResult {
	start := pipeline.now()
	config, err := parseConfig(text, deviceIP, deviceType)
	var stats *ConfigStats
	if err == nil {
		stats, err = pipeline.storeConfig(ctx, config)
	}

	success := err == nil
	pipeline.metrics.observeImport(common.ImportKindConfig, success, pipeline.now().Sub(start).Seconds())
	entry := common.ImportEntry{
		Time:     start,
		DeviceIP: deviceIP,
		Kind:     common.ImportKindConfig,
		Format:   string(deviceType),
		Success:  success,
		Duration: pipeline.now().Sub(start),
	}
	if stats != nil {
		entry.EntriesProcessed = stats.Ports
		entry.EntriesImported = stats.Ports
	}
	pipeline.history(entry)

	if err != nil {
		log.WithError(err).WithField("device", deviceIP).Warn("Failed to import configuration")
		return &ConfigResult{
			Success: false,
			Error:   err.Error(),
			Message: fmt.Sprintf("Failed to import configuration for %s", deviceIP),
		}
	}
	log.WithFields(log.Fields{
		"device":      deviceIP,
		"device_type": stats.DeviceType,
		"ports":       stats.Ports,
		"vlans":       stats.Vlans,
	}).Info("Imported configuration")
	return &ConfigResult{
		Success: true,
		Message: fmt.Sprintf("Successfully imported configuration for %s", deviceIP),
		Stats:   stats,
	}
}

func parseConfig(text string, deviceIP string, deviceType parsers.DeviceType) (*parsers.DeviceConfig, error) {
	switch deviceType {
	case parsers.DeviceTypeCisco:
		return nil, fmt.Errorf("cisco configuration: %w", util.ErrUnsupportedDevice)
	case parsers.DeviceTypeUnknown, "":
		if config := parsers.ParseOLTConfig(text, deviceIP); config.Directives > 0 && len(config.Ports) > 0 {
			return config, nil
		}
		if config := parsers.ParseDLinkConfig(text, deviceIP); config.Directives > 0 {
			return config, nil
		}
		return nil, fmt.Errorf("unrecognized configuration: %w", util.ErrParseFailed)
	}
	config, ok := parsers.ParseConfig(deviceType, text, deviceIP)
	if !ok {
		return nil, fmt.Errorf("device type %q: %w", deviceType, util.ErrUnsupportedDevice)
	}
	return config, nil
}

func (pipeline *Pipeline) storeConfig(ctx context.Context, config *parsers.DeviceConfig) (*ConfigStats, error) {
	stats := &ConfigStats{
		DeviceIP:       config.Device.IPAddress,
		DeviceHostname: config.Device.Hostname,
		DeviceType:     config.Device.DeviceType,
		Subscribers:    len(config.Subscribers),
	}
	err := pipeline.store.InTx(ctx, func(tx db.Tx) error {
		deviceID, err := tx.UpsertDevice(ctx, config.Device)
		if err != nil {
			return err
		}
		stats.DeviceID = deviceID

		for _, vlan := range config.Vlans {
			if err := tx.UpsertVlan(ctx, vlan); err != nil {
				return err
			}
			stats.Vlans++
		}

		portIDs := make(map[int]int64, len(config.Ports))
		for _, port := range config.Ports {
			port.DeviceID = deviceID
			portID, err := tx.UpsertPort(ctx, port)
			if err != nil {
				return err
			}
			portIDs[port.Number] = portID
			stats.Ports++
		}

		for _, assignment := range config.Assignments {
			portID, ok := portIDs[assignment.PortNumber]
			if !ok {
				return fmt.Errorf("assignment of vlan %d to port %d: %w", assignment.VlanID, assignment.PortNumber, util.ErrNotFound)
			}
			assignment.DeviceID = deviceID
			assignment.PortID = portID
			if err := tx.UpsertPortVlan(ctx, assignment); err != nil {
				return err
			}
			stats.Assignments++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ImportMacTable - Parse a MAC table dump of a known device, store its sightings and analyze every VLAN touched.
func (pipeline *Pipeline) ImportMacTable(ctx context.Context, text string, deviceIP string, format parsers.Format) *MacTableResult {
	start := pipeline.now()
	result := pipeline.importMacTable(ctx, text, deviceIP, format)

	pipeline.metrics.observeImport(common.ImportKindMacTable, result.Success, pipeline.now().Sub(start).Seconds())
	pipeline.metrics.observeEntries(result.Stats.EntriesImported, result.Stats.EntriesFailed)
	pipeline.history(common.ImportEntry{
		Time:             start,
		DeviceIP:         deviceIP,
		Kind:             common.ImportKindMacTable,
		Format:           string(format),
		Success:          result.Success,
		Duration:         pipeline.now().Sub(start),
		EntriesProcessed: result.Stats.EntriesProcessed,
		EntriesImported:  result.Stats.EntriesImported,
		EntriesFailed:    result.Stats.EntriesFailed,
		VlansAnalyzed:    result.Stats.VlansAnalyzed,
	})

	fields := log.Fields{
		"device":    deviceIP,
		"processed": result.Stats.EntriesProcessed,
		"imported":  result.Stats.EntriesImported,
		"failed":    result.Stats.EntriesFailed,
	}
	if result.Success {
		log.WithFields(fields).Info("Imported MAC table")
	} else {
		log.WithFields(fields).WithField("error", result.Error).Warn("Failed to import MAC table")
	}
	return result
}

func (pipeline *Pipeline) importMacTable(ctx context.Context, text string, deviceIP string, format parsers.Format) *MacTableResult {
	failure := func(err error) *MacTableResult {
		return &MacTableResult{
			Success: false,
			Error:   err.Error(),
			Message: fmt.Sprintf("Failed to import MAC table for %s", deviceIP),
		}
	}

	device, err := pipeline.store.DeviceByIP(ctx, deviceIP)
	if errors.Is(err, util.ErrNotFound) {
		return failure(fmt.Errorf("device not found: %s, import its configuration first", deviceIP))
	}
	if err != nil {
		return failure(err)
	}

	ports, err := pipeline.store.PortsWithVlans(ctx, device.ID)
	if err != nil {
		return failure(err)
	}
	mappings := NewPortMappings(ports)

	parser, err := parsers.ParserForFormat(format)
	if err != nil {
		return failure(err)
	}
	deviceContext := &parsers.DeviceContext{
		ID:         device.ID,
		IPAddress:  device.IPAddress,
		Hostname:   device.Hostname,
		DeviceType: device.DeviceType,
	}
	var entries []parsers.Entry
	parserName := "auto"
	if parser != nil {
		parserName = parser.Name()
		entries = parser.Parse(text, deviceContext)
	} else {
		entries = parsers.ParseFdb(text, deviceContext)
	}
	entries = parsers.EnrichEntries(entries, mappings.Contexts())

	if len(entries) == 0 {
		return &MacTableResult{
			Success: false,
			Message: "No MAC entries found in the provided table",
			Parser:  parserName,
			Stats: MacTableStats{
				DeviceIP:       deviceIP,
				DeviceHostname: device.Hostname,
			},
		}
	}

	result := &MacTableResult{
		Success: true,
		Message: fmt.Sprintf("Successfully imported MAC table for %s", deviceIP),
		Parser:  parserName,
		Stats: MacTableStats{
			EntriesProcessed: len(entries),
			DeviceIP:         deviceIP,
			DeviceHostname:   device.Hostname,
		},
	}

	seen := pipeline.now()
	vlans := make(map[int]bool)
	for _, entry := range entries {
		mapping, ok := mappings.Resolve(entry.Port)
		if !ok {
			result.FailedEntries = append(result.FailedEntries, FailedEntry{
				Mac:    entry.MacAddress,
				Reason: fmt.Sprintf("Port not found: %s", entry.Port),
			})
			continue
		}
		clientType := entry.ClientType
		if clientType == "" {
			clientType = mac.ClientType(entry.Vendor)
		}
		_, err := pipeline.store.UpsertMacSighting(ctx, common.MacSighting{
			MacAddress:     entry.MacAddress,
			VlanID:         entry.VlanID,
			DeviceID:       device.ID,
			PortID:         mapping.PortID,
			Description:    entry.Description,
			ClientType:     clientType,
			LearningMethod: entry.LearningMethod,
			LastSeen:       seen,
		})
		if err != nil {
			result.FailedEntries = append(result.FailedEntries, FailedEntry{Mac: entry.MacAddress, Reason: err.Error()})
			continue
		}
		result.Stats.EntriesImported++
		vlans[entry.VlanID] = true
	}
	result.Stats.EntriesFailed = len(result.FailedEntries)

	vlanIDs := make([]int, 0, len(vlans))
	for vlanID := range vlans {
		vlanIDs = append(vlanIDs, vlanID)
	}
	sort.Ints(vlanIDs)
	result.Stats.VlansAnalyzed = len(vlanIDs)
	for _, vlanID := range vlanIDs {
		result.TopologyAnalysis = append(result.TopologyAnalysis, pipeline.analyzeVlan(ctx, vlanID))
	}
	return result
}

func (pipeline *Pipeline) analyzeVlan(ctx context.Context, vlanID int) VlanAnalysis {
	macTopology, err := pipeline.analyzer.AnalyzeVlanTopology(ctx, vlanID)
	pipeline.metrics.observeAnalysis(err == nil)
	if err != nil {
		log.WithError(err).WithField("vlan_id", vlanID).Warn("Topology analysis failed")
		return VlanAnalysis{VlanID: vlanID, AnalysisComplete: false, Error: err.Error()}
	}

	sources := 0
	for _, entry := range macTopology {
		for _, location := range entry.Locations {
			if location.IsSource != nil && *location.IsSource {
				sources++
				break
			}
		}
	}
	return VlanAnalysis{VlanID: vlanID, AnalysisComplete: true, MacSourcesIdentified: common.IntPtr(sources)}
}

// AnalyzeVlan - Re-run topology analysis of a VLAN outside of an import.
func (pipeline *Pipeline) AnalyzeVlan(ctx context.Context, vlanID int) ([]topology.MacTopology, error) {
	macTopology, err := pipeline.analyzer.AnalyzeVlanTopology(ctx, vlanID)
	pipeline.metrics.observeAnalysis(err == nil)
	return macTopology, err
}

// DeviceStats - Counters per stored device.
func (pipeline *Pipeline) DeviceStats(ctx context.Context) ([]common.DeviceStats, error) {
	return pipeline.store.DeviceStats(ctx)
}
