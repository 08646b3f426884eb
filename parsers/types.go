// Package parsers turns vendor configuration and MAC address table dumps into records.
// All parsers are pure: no I/O, no shared mutable state, deterministic for identical input.
package parsers

import (
	"strings"

	"dev.hon.one/l2scheme/common"
)

// DeviceType - Dialect of a configuration dump.
type DeviceType string

// Detected configuration dialects.
const (
	DeviceTypeOLT     DeviceType = "OLT"
	DeviceTypeDLink   DeviceType = "D-Link"
	DeviceTypeCisco   DeviceType = "Cisco"
	DeviceTypeUnknown DeviceType = "Unknown"
)

// DeviceConfig - Everything extracted from one configuration dump.
type DeviceConfig struct {
	Device      common.Device               `json:"device"`
	Ports       []common.Port               `json:"ports"`
	Vlans       []common.Vlan               `json:"vlans"`
	Assignments []common.PortVlanAssignment `json:"device_vlans"`
	EponPorts   []common.EponPort           `json:"epon_ports,omitempty"`
	Subscribers []common.Subscriber         `json:"subscribers,omitempty"`
	// Directives counts the lines that matched a known directive of the dialect.
	Directives int `json:"-"`
}

// DeviceContext - The device a MAC table dump was taken from.
type DeviceContext struct {
	ID         int64  `json:"id"`
	IPAddress  string `json:"ip_address"`
	Hostname   string `json:"hostname"`
	DeviceType string `json:"device_type"`
}

// Entry - One learned address row of a MAC table dump.
// IsSource and HopCount are never set by parsers; topology analysis fills them in.
type Entry struct {
	VlanID          int            `json:"vlan_id"`
	MacAddress      string         `json:"mac_address"`
	Port            string         `json:"port"`
	LearningMethod  string         `json:"learning_method"`
	Vendor          string         `json:"vendor"`
	Device          *DeviceContext `json:"device_info,omitempty"`
	RawLine         string         `json:"raw_line"`
	Description     string         `json:"description,omitempty"`
	ClientType      string         `json:"client_type,omitempty"`
	IsSource        *bool          `json:"is_source"`
	HopCount        *int           `json:"hop_count"`
	PortType        string         `json:"port_type,omitempty"`
	PortDescription string         `json:"port_description,omitempty"`
	PortMode        string         `json:"port_mode,omitempty"`
	NativeVlan      *int           `json:"native_vlan,omitempty"`
}

// FdbParser - One MAC table dialect.
type FdbParser interface {
	Name() string
	Parse(text string, device *DeviceContext) []Entry
}

// splitLines splits on LF and drops CR, keeping indentation.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
