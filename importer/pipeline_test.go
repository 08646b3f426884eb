package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/db"
	"dev.hon.one/l2scheme/mac"
	"dev.hon.one/l2scheme/parsers"
	"dev.hon.one/l2scheme/topology"
)

const switchConfig = `#-------------------------------------------------------------------
#                       DGS-3120-24TC Gigabit Ethernet Switch
#                                Configuration
#
#                          Firmware: Build 4.04.013
#           Copyright(C) 2014 D-Link Corporation. All rights reserved.
#-------------------------------------------------------------------

config ports 1-4 description Uplink
create vlan mgmt tag 80
config vlan default add untagged 5-8
config vlan mgmt add tagged 1-4,25
config vlan vlanid 80 add tagged 26
`

const accessSwitchFdb = `Command: show fdb

VID  MAC Address        Port  Type
---- -----------------  ----  -------
1    00-11-22-33-44-55   5   Dynamic
1    00-11-22-33-44-66   99  Dynamic
80   00-50-56-00-00-01   1   Dynamic
`

const coreSwitchFdb = `Command: show fdb

VID  MAC Address        Port  Type
---- -----------------  ----  -------
1    00-11-22-33-44-55   1   Dynamic
`

type historySink struct {
	mutex   sync.Mutex
	entries []common.ImportEntry
}

func (sink *historySink) store(entry common.ImportEntry) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	sink.entries = append(sink.entries, entry)
}

func newTestPipeline(t *testing.T) (*Pipeline, *db.MemoryStore, *historySink, *Metrics) {
	t.Helper()
	store := db.NewMemoryStore()
	analyzer := topology.NewAnalyzer(store, nil, topology.HopPolicyNone)
	metrics := NewMetrics(prometheus.NewRegistry())
	pipeline := NewPipeline(store, analyzer, metrics)
	sink := &historySink{}
	pipeline.SetHistory(sink.store)
	return pipeline, store, sink, metrics
}

func TestImportConfig(t *testing.T) {
	pipeline, store, sink, metrics := newTestPipeline(t)

	result := pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink)

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Stats)
	assert.Equal(t, "10.0.0.1", result.Stats.DeviceIP)
	assert.Equal(t, "DLink_10_0_0_1", result.Stats.DeviceHostname)
	assert.Equal(t, 28, result.Stats.Ports)
	assert.Equal(t, 2, result.Stats.Vlans)
	assert.Equal(t, 10, result.Stats.Assignments)

	device, err := store.DeviceByIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	ports, err := store.PortsWithVlans(context.Background(), device.ID)
	require.NoError(t, err)
	require.Len(t, ports, 28)
	assert.Equal(t, common.PortModeAccess, common.EffectivePortMode(ports[4].Port, ports[4].Assignments))
	assert.Equal(t, common.PortModeTrunk, common.EffectivePortMode(ports[0].Port, ports[0].Assignments))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, common.ImportKindConfig, sink.entries[0].Kind)
	assert.True(t, sink.entries[0].Success)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Imports.WithLabelValues(common.ImportKindConfig, "success")))
}

func TestImportConfigIsIdempotent(t *testing.T) {
	pipeline, store, _, _ := newTestPipeline(t)

	first := pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink)
	second := pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Stats.DeviceID, second.Stats.DeviceID)

	stats, err := store.DeviceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 28, stats[0].TotalPorts)
}

func TestImportConfigAutoDetects(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	result := pipeline.ImportConfigAuto(context.Background(), switchConfig, "10.0.0.1")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "D-Link Switch", result.Stats.DeviceType)
}

func TestImportConfigFailures(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		deviceType parsers.DeviceType
	}{
		{"cisco", "hostname core\n! Cisco IOS\n", parsers.DeviceTypeCisco},
		{"unrecognized", "nothing to see here\n", parsers.DeviceTypeUnknown},
		{"bogus type", switchConfig, parsers.DeviceType("Juniper")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pipeline, store, sink, _ := newTestPipeline(t)

			result := pipeline.ImportConfig(context.Background(), test.text, "10.0.0.9", test.deviceType)

			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
			assert.Nil(t, result.Stats)
			_, err := store.DeviceByIP(context.Background(), "10.0.0.9")
			assert.Error(t, err)
			require.Len(t, sink.entries, 1)
			assert.False(t, sink.entries[0].Success)
		})
	}
}

func TestImportMacTableUnknownDevice(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	result := pipeline.ImportMacTable(context.Background(), accessSwitchFdb, "10.0.0.1", parsers.FormatAuto)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "10.0.0.1")
	assert.Equal(t, "Failed to import MAC table for 10.0.0.1", result.Message)
}

func TestImportMacTable(t *testing.T) {
	pipeline, store, sink, metrics := newTestPipeline(t)
	require.True(t, pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink).Success)

	result := pipeline.ImportMacTable(context.Background(), accessSwitchFdb, "10.0.0.1", parsers.FormatAuto)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "dlink", result.Parser)
	assert.Equal(t, 3, result.Stats.EntriesProcessed)
	assert.Equal(t, 2, result.Stats.EntriesImported)
	assert.Equal(t, 1, result.Stats.EntriesFailed)
	assert.Equal(t, 2, result.Stats.VlansAnalyzed)
	assert.Equal(t, []FailedEntry{{Mac: "00:11:22:33:44:66", Reason: "Port not found: 99"}}, result.FailedEntries)

	require.Len(t, result.TopologyAnalysis, 2)
	assert.Equal(t, 1, result.TopologyAnalysis[0].VlanID)
	assert.Equal(t, 80, result.TopologyAnalysis[1].VlanID)
	for _, analysis := range result.TopologyAnalysis {
		assert.True(t, analysis.AnalysisComplete)
		require.NotNil(t, analysis.MacSourcesIdentified)
		assert.Equal(t, 1, *analysis.MacSourcesIdentified)
	}

	locations, err := store.MacLocations(context.Background(), "00:50:56:00:00:01", 80)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, mac.ClientVirtualMachine, locations[0].ClientType)

	require.Len(t, sink.entries, 2)
	assert.Equal(t, common.ImportKindMacTable, sink.entries[1].Kind)
	assert.Equal(t, 2, sink.entries[1].EntriesImported)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Entries.WithLabelValues("imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Entries.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Analyses.WithLabelValues("success")))
}

// flakyStore fails location lookups for a single VLAN.
type flakyStore struct {
	*db.MemoryStore
	failVlan int
}

var errLocationsUnavailable = errors.New("locations unavailable")

func (store *flakyStore) MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	if vlanID == store.failVlan {
		return nil, fmt.Errorf("vlan %d: %w", vlanID, errLocationsUnavailable)
	}
	return store.MemoryStore.MacLocations(ctx, macAddress, vlanID)
}

func TestImportMacTableIsolatesVlanAnalysisFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: db.NewMemoryStore(), failVlan: 1}
	metrics := NewMetrics(prometheus.NewRegistry())
	pipeline := NewPipeline(store, topology.NewAnalyzer(store, nil, topology.HopPolicyNone), metrics)
	require.True(t, pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink).Success)

	result := pipeline.ImportMacTable(context.Background(), accessSwitchFdb, "10.0.0.1", parsers.FormatAuto)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.Stats.EntriesImported)
	require.Len(t, result.TopologyAnalysis, 2)

	failed := result.TopologyAnalysis[0]
	assert.Equal(t, 1, failed.VlanID)
	assert.False(t, failed.AnalysisComplete)
	assert.Contains(t, failed.Error, errLocationsUnavailable.Error())
	assert.Nil(t, failed.MacSourcesIdentified)

	analyzed := result.TopologyAnalysis[1]
	assert.Equal(t, 80, analyzed.VlanID)
	assert.True(t, analyzed.AnalysisComplete)
	assert.Empty(t, analyzed.Error)
	require.NotNil(t, analyzed.MacSourcesIdentified)
	assert.Equal(t, 1, *analyzed.MacSourcesIdentified)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Analyses.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Analyses.WithLabelValues("success")))
}

func TestImportMacTableAcrossSwitches(t *testing.T) {
	pipeline, store, _, _ := newTestPipeline(t)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		require.True(t, pipeline.ImportConfig(context.Background(), switchConfig, ip, parsers.DeviceTypeDLink).Success)
	}

	require.True(t, pipeline.ImportMacTable(context.Background(), accessSwitchFdb, "10.0.0.1", parsers.FormatDLink).Success)
	result := pipeline.ImportMacTable(context.Background(), coreSwitchFdb, "10.0.0.2", parsers.FormatDLink)
	require.True(t, result.Success, result.Error)

	locations, err := store.MacLocations(context.Background(), "00:11:22:33:44:55", 1)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	for _, location := range locations {
		require.NotNil(t, location.IsSource)
		switch location.DeviceIP {
		case "10.0.0.1":
			assert.True(t, *location.IsSource)
			assert.Equal(t, 5, location.PortNumber)
		case "10.0.0.2":
			assert.False(t, *location.IsSource)
			assert.Equal(t, 1, location.PortNumber)
		}
	}
}

func TestImportMacTableNoEntries(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)
	require.True(t, pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink).Success)

	result := pipeline.ImportMacTable(context.Background(), "Total Entries: 0\n", "10.0.0.1", parsers.FormatAuto)

	assert.False(t, result.Success)
	assert.Equal(t, "No MAC entries found in the provided table", result.Message)
	assert.Zero(t, result.Stats.EntriesProcessed)
}

func TestImportMacTableUnsupportedFormat(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)
	require.True(t, pipeline.ImportConfig(context.Background(), switchConfig, "10.0.0.1", parsers.DeviceTypeDLink).Success)

	result := pipeline.ImportMacTable(context.Background(), accessSwitchFdb, "10.0.0.1", parsers.Format("juniper"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "juniper")
}

func TestImportDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigsDir, "10_0_0_1.cfg"), switchConfig)
	writeFile(t, filepath.Join(dir, ConfigsDir, "10_0_0_2.cfg"), switchConfig)
	writeFile(t, filepath.Join(dir, MacTablesDir, "10_0_0_1.mac"), accessSwitchFdb)
	writeFile(t, filepath.Join(dir, MacTablesDir, "10_0_0_2.mac"), coreSwitchFdb)
	writeFile(t, filepath.Join(dir, MacTablesDir, "notes.txt"), coreSwitchFdb)
	pipeline, store, _, _ := newTestPipeline(t)

	result, err := pipeline.ImportDirectory(context.Background(), dir, 4)

	require.NoError(t, err)
	require.Len(t, result.Configs, 2)
	require.Len(t, result.MacTables, 3)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "10.0.0.1", result.Configs[0].DeviceIP)
	assert.Equal(t, filepath.Join(dir, MacTablesDir, "notes.txt"), result.MacTables[2].Path)
	assert.NotEmpty(t, result.MacTables[2].Error)

	stats, err := store.DeviceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 3, stats[0].TotalMacs+stats[1].TotalMacs)
}

func TestImportDirectoryMissing(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	_, err := pipeline.ImportDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), 1)

	assert.Error(t, err)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
