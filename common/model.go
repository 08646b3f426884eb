package common

import "time"

// Port types.
const (
	PortTypeEthernet   = "ethernet"
	PortTypeFiber      = "fiber"
	PortTypeEPON       = "EPON"
	PortTypeEPONAccess = "EPON_ACCESS"
)

// Port modes, as configured on the port or derived from its VLAN assignments.
const (
	PortModeAccess   = "access"
	PortModeTrunk    = "trunk"
	PortModeHybrid   = "hybrid"
	PortModeUntagged = "untagged"
	PortModeUnknown  = "unknown"
)

// VLAN assignment modes.
const (
	VlanModeTagged   = "tagged"
	VlanModeUntagged = "untagged"
)

// Device - A switch or OLT, identified by its management IP address.
type Device struct {
	ID              int64  `json:"id"`
	IPAddress       string `json:"ip_address"`
	Hostname        string `json:"hostname"`
	DeviceType      string `json:"device_type"`
	Model           string `json:"model,omitempty"`
	Firmware        string `json:"firmware_version,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	HardwareVersion string `json:"hardware_version,omitempty"`
	SystemMAC       string `json:"mac_address,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Port - A port of a device, identified by (device, number).
type Port struct {
	ID           int64  `json:"id"`
	DeviceID     int64  `json:"device_id"`
	Number       int    `json:"port_number"`
	Name         string `json:"port_name"`
	Type         string `json:"port_type"`
	Description  string `json:"description"`
	AdminState   string `json:"admin_state"`
	OperState    string `json:"oper_state"`
	Speed        string `json:"speed"`
	Duplex       string `json:"duplex"`
	Mode         string `json:"mode,omitempty"`
	NativeVlan   *int   `json:"native_vlan,omitempty"`
	AllowedVlans []int  `json:"allowed_vlans,omitempty"`
	QinQ         bool   `json:"qinq_enabled"`
	EponParent   string `json:"epon_parent,omitempty"`
	SubscriberID *int   `json:"subscriber_id,omitempty"`
}

// Vlan - A VLAN, identified by its numeric tag.
type Vlan struct {
	VlanID      int    `json:"vlan_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// PortVlanAssignment - Membership of a port in a VLAN, unique per (device, port, vlan, mode).
type PortVlanAssignment struct {
	DeviceID   int64  `json:"device_id"`
	PortID     int64  `json:"port_id"`
	PortNumber int    `json:"port_number"`
	VlanID     int    `json:"vlan_id"`
	Mode       string `json:"mode"`
	Native     bool   `json:"native_vlan"`
	QinQ       bool   `json:"qinq_enabled"`
	OuterVlan  *int   `json:"outer_vlan,omitempty"`
	InnerVlan  *int   `json:"inner_vlan_id,omitempty"`
}

// MacSighting - An address learned on a (device, port, vlan). IsSource and HopCount stay nil until analyzed.
type MacSighting struct {
	ID             int64     `json:"id"`
	MacAddress     string    `json:"mac_address"`
	VlanID         int       `json:"vlan_id"`
	DeviceID       int64     `json:"device_id"`
	PortID         int64     `json:"port_id"`
	IPAddress      string    `json:"ip_address,omitempty"`
	Description    string    `json:"description,omitempty"`
	ClientType     string    `json:"client_type,omitempty"`
	LearningMethod string    `json:"learning_method"`
	LastSeen       time.Time `json:"last_seen"`
	IsSource       *bool     `json:"is_source"`
	HopCount       *int      `json:"hop_count"`
}

// MacLocation - A sighting joined with its device and port, annotated with the number of
// sightings sharing the same (device, port, vlan).
type MacLocation struct {
	SightingID     int64     `json:"id"`
	MacAddress     string    `json:"mac_address"`
	VlanID         int       `json:"vlan_id"`
	DeviceID       int64     `json:"device_id"`
	DeviceIP       string    `json:"device_ip"`
	DeviceHostname string    `json:"device_hostname"`
	DeviceType     string    `json:"device_type"`
	PortID         int64     `json:"port_id"`
	PortNumber     int       `json:"port_number"`
	PortName       string    `json:"port_name"`
	PortType       string    `json:"port_type"`
	PortMode       string    `json:"port_mode"`
	PortMacCount   int       `json:"port_mac_count"`
	IPAddress      string    `json:"ip_address,omitempty"`
	Description    string    `json:"description,omitempty"`
	ClientType     string    `json:"client_type,omitempty"`
	LearningMethod string    `json:"learning_method"`
	LastSeen       time.Time `json:"last_seen"`
	IsSource       *bool     `json:"is_source"`
	HopCount       *int      `json:"hop_count"`
}

// OnuBinding - An ONU bound to an EPON trunk port by MAC address.
type OnuBinding struct {
	MacAddress    string `json:"mac_address"`
	OnuID         int    `json:"onu_id"`
	InterfaceName string `json:"interface_name"`
}

// EponPort - An OLT EPON trunk port and the ONUs bound to it.
type EponPort struct {
	PortName     string       `json:"port_name"`
	PortNumber   int          `json:"port_number"`
	AllowedVlans []int        `json:"vlans"`
	Bindings     []OnuBinding `json:"subscribers"`
}

// Subscriber - An EPON subscriber sub-interface.
type Subscriber struct {
	InterfaceName string `json:"interface_name"`
	PortName      string `json:"port_name"`
	SubscriberID  int    `json:"subscriber_id"`
	Description   string `json:"description,omitempty"`
	MacAddress    string `json:"mac_address,omitempty"`
	VlanID        *int   `json:"vlan,omitempty"`
	BandwidthUp   *int   `json:"bandwidth_up,omitempty"`
	BandwidthDown *int   `json:"bandwidth_down,omitempty"`
	PortSecurity  bool   `json:"port_security"`
}

// DeviceStats - Per-device counters after imports.
type DeviceStats struct {
	DeviceID    int64  `json:"id"`
	IPAddress   string `json:"ip_address"`
	Hostname    string `json:"hostname"`
	DeviceType  string `json:"device_type"`
	TotalPorts  int    `json:"total_ports"`
	TotalVlans  int    `json:"total_vlans"`
	TotalMacs   int    `json:"total_macs"`
	SourceMacs  int    `json:"source_macs"`
	TransitMacs int    `json:"transit_macs"`
}

// IntPtr - Pointer to a copy of the value.
func IntPtr(value int) *int {
	return &value
}

// BoolPtr - Pointer to a copy of the value.
func BoolPtr(value bool) *bool {
	return &value
}

// DerivePortMode - Mode implied by a port's VLAN memberships: untagged and tagged is hybrid,
// untagged only is access, tagged only is trunk, none is unknown.
func DerivePortMode(assignments []PortVlanAssignment) string {
	untagged, tagged := false, false
	for _, assignment := range assignments {
		if assignment.Mode == VlanModeUntagged || assignment.Native {
			untagged = true
		} else if assignment.Mode == VlanModeTagged {
			tagged = true
		}
	}
	switch {
	case untagged && tagged:
		return PortModeHybrid
	case untagged:
		return PortModeAccess
	case tagged:
		return PortModeTrunk
	}
	return PortModeUnknown
}

// EffectivePortMode - The configured mode if the device reports one, else the derived mode.
func EffectivePortMode(port Port, assignments []PortVlanAssignment) string {
	if port.Mode != "" {
		return port.Mode
	}
	return DerivePortMode(assignments)
}

// NativeVlanOf - The configured native VLAN, else the first native assignment.
func NativeVlanOf(port Port, assignments []PortVlanAssignment) *int {
	if port.NativeVlan != nil {
		return port.NativeVlan
	}
	for _, assignment := range assignments {
		if assignment.Native {
			return IntPtr(assignment.VlanID)
		}
	}
	return nil
}

// Import kinds.
const (
	ImportKindConfig   = "config"
	ImportKindMacTable = "mac_table"
)

// ImportEntry - Outcome of one import, kept as history.
type ImportEntry struct {
	Time             time.Time     `json:"time"`
	DeviceIP         string        `json:"device_ip"`
	Kind             string        `json:"kind"`
	Format           string        `json:"format"`
	Success          bool          `json:"success"`
	Duration         time.Duration `json:"duration"`
	EntriesProcessed int           `json:"entries_processed"`
	EntriesImported  int           `json:"entries_imported"`
	EntriesFailed    int           `json:"entries_failed"`
	VlansAnalyzed    int           `json:"vlans_analyzed"`
}
