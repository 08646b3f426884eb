package parsers

import (
	"sort"
)

// Summary - Counters over a parsed MAC table.
type Summary struct {
	TotalEntries     int            `json:"total_entries"`
	UniqueMacs       int            `json:"unique_macs"`
	ByVendor         map[string]int `json:"by_vendor"`
	ByVlan           map[int]int    `json:"by_vlan"`
	ByPort           map[string]int `json:"by_port"`
	ByLearningMethod map[string]int `json:"by_learning_method"`
	// BusiestPorts lists ports by descending entry count, ties by name.
	BusiestPorts []PortCount `json:"busiest_ports"`
}

// PortCount - Entry count of one raw port token.
type PortCount struct {
	Port    string `json:"port"`
	Entries int    `json:"entries"`
}

// Summarize counts entries per vendor, VLAN, port and learning method.
func Summarize(entries []Entry) Summary {
	summary := Summary{
		TotalEntries:     len(entries),
		ByVendor:         make(map[string]int),
		ByVlan:           make(map[int]int),
		ByPort:           make(map[string]int),
		ByLearningMethod: make(map[string]int),
	}
	macs := make(map[string]bool)
	for _, entry := range entries {
		macs[entry.MacAddress] = true
		summary.ByVendor[entry.Vendor]++
		summary.ByVlan[entry.VlanID]++
		summary.ByPort[entry.Port]++
		summary.ByLearningMethod[entry.LearningMethod]++
	}
	summary.UniqueMacs = len(macs)

	for port, count := range summary.ByPort {
		summary.BusiestPorts = append(summary.BusiestPorts, PortCount{Port: port, Entries: count})
	}
	sort.Slice(summary.BusiestPorts, func(i, j int) bool {
		a, b := summary.BusiestPorts[i], summary.BusiestPorts[j]
		if a.Entries != b.Entries {
			return a.Entries > b.Entries
		}
		return a.Port < b.Port
	})
	return summary
}
