// Package topology decides which sighting of an address is its edge attachment point.
package topology

import (
	"regexp"
	"sort"
	"strings"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

// HopPolicy - How hop counts of transit sightings are filled in.
type HopPolicy string

// Hop policies.
const (
	// HopPolicyNone leaves transit hop counts unset since the real distance is unknown.
	HopPolicyNone HopPolicy = common.HopPolicyNone
	// HopPolicyPopulation ranks transit sightings by port population, starting at 1.
	HopPolicyPopulation HopPolicy = common.HopPolicyPopulation
)

var eponPortNameRegex = regexp.MustCompile(`(?i)^epon\d+/\d+`)

// IsSubscriberAccessPort - Whether the sighting is on a port hosts attach to directly:
// an EPON port of an OLT, or a port in access/untagged mode.
func IsSubscriberAccessPort(location common.MacLocation) bool {
	if isOLT(location) {
		if location.PortType == common.PortTypeEPON || location.PortType == common.PortTypeEPONAccess {
			return true
		}
		if eponPortNameRegex.MatchString(location.PortName) {
			return true
		}
	}
	return location.PortMode == common.PortModeAccess || location.PortMode == common.PortModeUntagged
}

func isOLT(location common.MacLocation) bool {
	return strings.Contains(strings.ToUpper(location.DeviceType), "OLT") ||
		strings.Contains(strings.ToUpper(location.DeviceHostname), "OLT")
}

// lessPopulated orders sightings by port population, then device IP, port number and sighting ID.
func lessPopulated(a common.MacLocation, b common.MacLocation) bool {
	if a.PortMacCount != b.PortMacCount {
		return a.PortMacCount < b.PortMacCount
	}
	if order := util.CompareIP(a.DeviceIP, b.DeviceIP); order != 0 {
		return order < 0
	}
	if a.PortNumber != b.PortNumber {
		return a.PortNumber < b.PortNumber
	}
	return a.SightingID < b.SightingID
}

// Classify marks exactly one sighting of a (mac, vlan) key as the source and the rest as transit.
// The least populated subscriber access port wins. Without any access port the least populated
// port overall wins. The input is not modified.
func Classify(locations []common.MacLocation, policy HopPolicy) []common.MacLocation {
	if len(locations) == 0 {
		return nil
	}

	source := -1
	for i, location := range locations {
		if !IsSubscriberAccessPort(location) {
			continue
		}
		if source < 0 || lessPopulated(location, locations[source]) {
			source = i
		}
	}
	if source < 0 {
		source = 0
		for i := 1; i < len(locations); i++ {
			if lessPopulated(locations[i], locations[source]) {
				source = i
			}
		}
	}

	var ranks map[int]int
	if policy == HopPolicyPopulation {
		ranks = populationRanks(locations, source)
	}

	classified := make([]common.MacLocation, len(locations))
	for i, location := range locations {
		if i == source {
			location.IsSource = common.BoolPtr(true)
			location.HopCount = common.IntPtr(0)
		} else {
			location.IsSource = common.BoolPtr(false)
			location.HopCount = nil
			if rank, ok := ranks[location.PortMacCount]; ok {
				location.HopCount = common.IntPtr(rank)
			}
		}
		classified[i] = location
	}
	return classified
}

// populationRanks - Dense rank of the port populations of the transit sightings.
func populationRanks(locations []common.MacLocation, source int) map[int]int {
	var populations []int
	seen := make(map[int]bool)
	for i, location := range locations {
		if i == source || seen[location.PortMacCount] {
			continue
		}
		seen[location.PortMacCount] = true
		populations = append(populations, location.PortMacCount)
	}
	sort.Ints(populations)

	ranks := make(map[int]int, len(populations))
	for i, population := range populations {
		ranks[population] = i + 1
	}
	return ranks
}
