package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/l2scheme/common"
)

func location(id int64, deviceIP string, portNumber int, mode string, population int) common.MacLocation {
	return common.MacLocation{
		SightingID:   id,
		MacAddress:   "00:11:22:33:44:55",
		VlanID:       10,
		DeviceID:     id,
		DeviceIP:     deviceIP,
		DeviceType:   "D-Link Switch",
		PortNumber:   portNumber,
		PortMode:     mode,
		PortMacCount: population,
	}
}

func sources(locations []common.MacLocation) []int64 {
	var ids []int64
	for _, location := range locations {
		if location.IsSource != nil && *location.IsSource {
			ids = append(ids, location.SightingID)
		}
	}
	return ids
}

func TestClassifyPrefersAccessPort(t *testing.T) {
	locations := []common.MacLocation{
		location(2, "10.0.0.2", 5, common.PortModeTrunk, 40),
		location(1, "10.0.0.1", 1, common.PortModeAccess, 1),
		location(3, "10.0.0.3", 2, common.PortModeTrunk, 40),
	}
	classified := Classify(locations, HopPolicyNone)

	require.Len(t, classified, 3)
	assert.Equal(t, []int64{1}, sources(classified))
	assert.Equal(t, common.IntPtr(0), classified[1].HopCount)
	for _, i := range []int{0, 2} {
		assert.Equal(t, common.BoolPtr(false), classified[i].IsSource)
		assert.Nil(t, classified[i].HopCount)
	}
	assert.Nil(t, locations[0].IsSource)
}

func TestClassifyAccessPortBeatsLowerPopulationTrunk(t *testing.T) {
	locations := []common.MacLocation{
		location(1, "10.0.0.1", 1, common.PortModeTrunk, 1),
		location(2, "10.0.0.2", 3, common.PortModeUntagged, 7),
	}
	assert.Equal(t, []int64{2}, sources(Classify(locations, HopPolicyNone)))
}

func TestClassifyWithoutAccessPorts(t *testing.T) {
	locations := []common.MacLocation{
		location(1, "10.0.0.9", 1, common.PortModeTrunk, 12),
		location(2, "10.0.0.10", 3, common.PortModeHybrid, 4),
		location(3, "10.0.0.2", 3, common.PortModeTrunk, 4),
	}
	assert.Equal(t, []int64{3}, sources(Classify(locations, HopPolicyNone)))
}

func TestClassifyTieBreaks(t *testing.T) {
	tests := []struct {
		name      string
		locations []common.MacLocation
		expected  int64
	}{
		{
			name: "device ip numeric order",
			locations: []common.MacLocation{
				location(1, "10.0.0.10", 1, common.PortModeAccess, 2),
				location(2, "10.0.0.9", 1, common.PortModeAccess, 2),
			},
			expected: 2,
		},
		{
			name: "port number",
			locations: []common.MacLocation{
				location(1, "10.0.0.1", 8, common.PortModeAccess, 2),
				location(2, "10.0.0.1", 4, common.PortModeAccess, 2),
			},
			expected: 2,
		},
		{
			name: "sighting id",
			locations: []common.MacLocation{
				location(7, "10.0.0.1", 4, common.PortModeAccess, 2),
				location(5, "10.0.0.1", 4, common.PortModeAccess, 2),
			},
			expected: 5,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, []int64{test.expected}, sources(Classify(test.locations, HopPolicyNone)))
		})
	}
}

func TestClassifyOLTEponPort(t *testing.T) {
	olt := location(1, "10.0.0.1", 101, "", 30)
	olt.DeviceType = "OLT"
	olt.PortName = "EPON0/1"
	olt.PortType = common.PortTypeEPON
	uplink := location(2, "10.0.0.2", 25, common.PortModeTrunk, 2)

	assert.Equal(t, []int64{1}, sources(Classify([]common.MacLocation{uplink, olt}, HopPolicyNone)))

	byName := location(3, "10.0.0.3", 5, "", 30)
	byName.DeviceHostname = "olt-north"
	byName.PortName = "epon0/2:4"
	assert.True(t, IsSubscriberAccessPort(byName))

	notOLT := location(4, "10.0.0.4", 5, common.PortModeTrunk, 30)
	notOLT.PortName = "EPON0/1"
	assert.False(t, IsSubscriberAccessPort(notOLT))
}

func TestClassifyPopulationPolicy(t *testing.T) {
	locations := []common.MacLocation{
		location(1, "10.0.0.1", 1, common.PortModeAccess, 1),
		location(2, "10.0.0.2", 5, common.PortModeTrunk, 40),
		location(3, "10.0.0.3", 2, common.PortModeTrunk, 12),
		location(4, "10.0.0.4", 2, common.PortModeTrunk, 40),
	}
	classified := Classify(locations, HopPolicyPopulation)

	assert.Equal(t, common.IntPtr(0), classified[0].HopCount)
	assert.Equal(t, common.IntPtr(2), classified[1].HopCount)
	assert.Equal(t, common.IntPtr(1), classified[2].HopCount)
	assert.Equal(t, common.IntPtr(2), classified[3].HopCount)
}

func TestClassifyIsDeterministic(t *testing.T) {
	locations := []common.MacLocation{
		location(1, "10.0.0.3", 1, common.PortModeTrunk, 5),
		location(2, "10.0.0.1", 2, common.PortModeTrunk, 5),
		location(3, "10.0.0.2", 3, common.PortModeTrunk, 5),
	}
	first := Classify(locations, HopPolicyNone)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(locations, HopPolicyNone))
	}
	assert.Equal(t, []int64{2}, sources(first))
}

func TestClassifySingleSource(t *testing.T) {
	for n := 1; n <= 6; n++ {
		var locations []common.MacLocation
		for i := 0; i < n; i++ {
			mode := common.PortModeTrunk
			if i%3 == 0 {
				mode = common.PortModeAccess
			}
			locations = append(locations, location(int64(i+1), "10.0.0.1", i+1, mode, (i*7)%4))
		}
		classified := Classify(locations, HopPolicyPopulation)
		assert.Len(t, sources(classified), 1)
		for _, location := range classified {
			require.NotNil(t, location.IsSource)
		}
	}
}

func TestClassifyEmpty(t *testing.T) {
	assert.Empty(t, Classify(nil, HopPolicyNone))
}
