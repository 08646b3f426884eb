package topology

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/l2scheme/common"
)

type memorySource struct {
	mutex     sync.Mutex
	locations []common.MacLocation
	failMac   string
	writes    int
}

func (source *memorySource) VlanMacAddresses(ctx context.Context, vlanID int) ([]string, error) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	seen := make(map[string]bool)
	var macs []string
	for _, location := range source.locations {
		if location.VlanID == vlanID && !seen[location.MacAddress] {
			seen[location.MacAddress] = true
			macs = append(macs, location.MacAddress)
		}
	}
	sort.Strings(macs)
	return macs, nil
}

func (source *memorySource) MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	if macAddress == source.failMac {
		return nil, errors.New("broken join")
	}
	var locations []common.MacLocation
	for _, location := range source.locations {
		if location.VlanID == vlanID && location.MacAddress == macAddress {
			locations = append(locations, location)
		}
	}
	return locations, nil
}

func (source *memorySource) SetMacLocationTypes(ctx context.Context, updates []common.MacLocation) error {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	source.writes++
	for _, update := range updates {
		for i := range source.locations {
			if source.locations[i].SightingID == update.SightingID {
				source.locations[i].IsSource = update.IsSource
				source.locations[i].HopCount = update.HopCount
			}
		}
	}
	return nil
}

func scenarioSource() *memorySource {
	a := location(1, "10.0.0.1", 1, common.PortModeAccess, 1)
	b := location(2, "10.0.0.2", 5, common.PortModeTrunk, 40)
	c := location(3, "10.0.0.3", 2, common.PortModeTrunk, 40)
	other := location(4, "10.0.0.2", 5, common.PortModeTrunk, 40)
	other.MacAddress = "00:11:22:33:44:66"
	other.DeviceID = 2
	elsewhere := location(5, "10.0.0.2", 5, common.PortModeTrunk, 40)
	elsewhere.VlanID = 20
	return &memorySource{locations: []common.MacLocation{a, b, c, other, elsewhere}}
}

func TestAnalyzeVlanTopology(t *testing.T) {
	source := scenarioSource()
	analyzer := NewAnalyzer(source, nil, HopPolicyNone)

	topology, err := analyzer.AnalyzeVlanTopology(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, topology, 2)
	assert.Equal(t, "00:11:22:33:44:55", topology[0].MacAddress)
	assert.Equal(t, []int64{1}, sources(topology[0].Locations))
	assert.Equal(t, []int64{4}, sources(topology[1].Locations))

	assert.Equal(t, common.BoolPtr(true), source.locations[0].IsSource)
	assert.Equal(t, common.BoolPtr(false), source.locations[1].IsSource)
	assert.Nil(t, source.locations[4].IsSource)

	again, err := analyzer.AnalyzeVlanTopology(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, topology, again)
}

func TestAnalyzeVlanTopologyEmpty(t *testing.T) {
	analyzer := NewAnalyzer(&memorySource{}, nil, HopPolicyNone)
	topology, err := analyzer.AnalyzeVlanTopology(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, topology)
}

func TestAnalyzeVlanTopologyError(t *testing.T) {
	source := scenarioSource()
	source.failMac = "00:11:22:33:44:66"
	analyzer := NewAnalyzer(source, nil, HopPolicyNone)

	_, err := analyzer.AnalyzeVlanTopology(context.Background(), 10)
	assert.ErrorContains(t, err, "broken join")
}

func TestAnalyzeMacLocation(t *testing.T) {
	source := scenarioSource()
	analyzer := NewAnalyzer(source, NewLocalLocker(), HopPolicyPopulation)

	locations, err := analyzer.AnalyzeMacLocation(context.Background(), "00:11:22:33:44:55", 10)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.Equal(t, []int64{1}, sources(locations))
	assert.Equal(t, common.IntPtr(1), locations[1].HopCount)
	assert.Equal(t, 1, source.writes)

	locations, err = analyzer.AnalyzeMacLocation(context.Background(), "00:00:00:00:00:01", 10)
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestAnalyzeRespectsHeldLock(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), 10)
	require.NoError(t, err)

	analyzer := NewAnalyzer(scenarioSource(), locker, HopPolicyNone)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = analyzer.AnalyzeVlanTopology(ctx, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = analyzer.AnalyzeVlanTopology(context.Background(), 20)
	assert.NoError(t, err)

	unlock()
	_, err = analyzer.AnalyzeVlanTopology(context.Background(), 10)
	assert.NoError(t, err)
}

func TestLocalLockerSerializes(t *testing.T) {
	locker := NewLocalLocker()
	var waitGroup sync.WaitGroup
	active := 0
	maxActive := 0
	var mutex sync.Mutex
	for i := 0; i < 8; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			unlock, err := locker.Lock(context.Background(), 1)
			if !assert.NoError(t, err) {
				return
			}
			mutex.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mutex.Unlock()
			time.Sleep(time.Millisecond)
			mutex.Lock()
			active--
			mutex.Unlock()
			unlock()
		}()
	}
	waitGroup.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestGroupByDevice(t *testing.T) {
	source := scenarioSource()
	topology, err := NewAnalyzer(source, nil, HopPolicyNone).AnalyzeVlanTopology(context.Background(), 10)
	require.NoError(t, err)

	view := GroupByDevice(10, topology)
	assert.Equal(t, 10, view.VlanID)
	require.Len(t, view.Devices, 3)
	assert.Equal(t, "10.0.0.1", view.Devices[0].IPAddress)
	assert.Equal(t, "10.0.0.2", view.Devices[1].IPAddress)

	require.Len(t, view.Devices[0].Ports, 1)
	assert.Equal(t, common.BoolPtr(true), view.Devices[0].Ports[0].Macs[0].IsSource)

	require.Len(t, view.Devices[1].Ports, 1)
	macs := view.Devices[1].Ports[0].Macs
	require.Len(t, macs, 2)
	assert.Equal(t, "00:11:22:33:44:55", macs[0].MacAddress)
	assert.Equal(t, common.BoolPtr(false), macs[0].IsSource)
	assert.Equal(t, common.BoolPtr(true), macs[1].IsSource)
}
