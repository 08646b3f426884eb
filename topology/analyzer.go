package topology

import (
	"context"
	"fmt"
	"sort"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
	log "github.com/sirupsen/logrus"
)

// Source - Storage the analyzer reads sightings from and writes classifications to.
type Source interface {
	// VlanMacAddresses - Distinct addresses sighted in the VLAN.
	VlanMacAddresses(ctx context.Context, vlanID int) ([]string, error)
	// MacLocations - Sightings of an address in a VLAN joined with device and port, with port populations.
	// Sightings whose device or port is missing are not returned.
	MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error)
	// SetMacLocationTypes - Persist IsSource and HopCount of the sightings in one batch.
	SetMacLocationTypes(ctx context.Context, locations []common.MacLocation) error
}

// MacTopology - The classified sightings of one address.
type MacTopology struct {
	MacAddress string               `json:"mac_address"`
	Locations  []common.MacLocation `json:"locations"`
}

// Analyzer - Classifies sightings VLAN by VLAN.
type Analyzer struct {
	source Source
	locker Locker
	policy HopPolicy
}

// NewAnalyzer - Create an analyzer. A nil locker means in-process locking.
func NewAnalyzer(source Source, locker Locker, policy HopPolicy) *Analyzer {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if policy == "" {
		policy = HopPolicyNone
	}
	return &Analyzer{
		source: source,
		locker: locker,
		policy: policy,
	}
}

// AnalyzeMacLocation classifies the sightings of a single address, holding the VLAN lock.
func (analyzer *Analyzer) AnalyzeMacLocation(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	unlock, err := analyzer.locker.Lock(ctx, vlanID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return analyzer.analyzeMac(ctx, macAddress, vlanID)
}

// AnalyzeVlanTopology classifies every address sighted in the VLAN, holding the VLAN lock for the whole pass.
// A VLAN without sightings gives an empty result.
func (analyzer *Analyzer) AnalyzeVlanTopology(ctx context.Context, vlanID int) ([]MacTopology, error) {
	unlock, err := analyzer.locker.Lock(ctx, vlanID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	macAddresses, err := analyzer.source.VlanMacAddresses(ctx, vlanID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses of vlan %d: %w", vlanID, err)
	}

	topology := make([]MacTopology, 0, len(macAddresses))
	for _, macAddress := range macAddresses {
		locations, err := analyzer.analyzeMac(ctx, macAddress, vlanID)
		if err != nil {
			return nil, err
		}
		if len(locations) == 0 {
			continue
		}
		topology = append(topology, MacTopology{
			MacAddress: macAddress,
			Locations:  locations,
		})
	}

	log.WithFields(log.Fields{
		"vlan_id":    vlanID,
		"mac_count":  len(topology),
		"hop_policy": analyzer.policy,
	}).Debug("Analyzed VLAN topology")
	return topology, nil
}

func (analyzer *Analyzer) analyzeMac(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	locations, err := analyzer.source.MacLocations(ctx, macAddress, vlanID)
	if err != nil {
		return nil, fmt.Errorf("loading sightings of %s in vlan %d: %w", macAddress, vlanID, err)
	}
	if len(locations) == 0 {
		return nil, nil
	}

	classified := Classify(locations, analyzer.policy)
	if err := analyzer.source.SetMacLocationTypes(ctx, classified); err != nil {
		return nil, fmt.Errorf("storing classification of %s in vlan %d: %w", macAddress, vlanID, err)
	}

	log.WithFields(log.Fields{
		"mac_address": macAddress,
		"vlan_id":     vlanID,
		"sightings":   len(classified),
	}).Trace("Classified address")
	return classified, nil
}

// VlanView - Analyzed VLAN grouped as devices, their ports and the addresses on each port.
type VlanView struct {
	VlanID  int          `json:"vlan_id"`
	Devices []DeviceView `json:"devices"`
}

// DeviceView - One device of a VlanView.
type DeviceView struct {
	DeviceID   int64      `json:"device_id"`
	IPAddress  string     `json:"ip_address"`
	Hostname   string     `json:"hostname"`
	DeviceType string     `json:"device_type"`
	Ports      []PortView `json:"ports"`
}

// PortView - One port of a DeviceView.
type PortView struct {
	PortNumber   int       `json:"port_number"`
	PortName     string    `json:"port_name"`
	PortType     string    `json:"port_type"`
	PortMode     string    `json:"port_mode"`
	PortMacCount int       `json:"port_mac_count"`
	Macs         []MacView `json:"macs"`
}

// MacView - One sighting on a PortView.
type MacView struct {
	MacAddress     string `json:"mac_address"`
	LearningMethod string `json:"learning_method"`
	IsSource       *bool  `json:"is_source"`
	HopCount       *int   `json:"hop_count"`
}

// GroupByDevice regroups per-address topology by device and port, ordered by device IP,
// port number and address.
func GroupByDevice(vlanID int, topology []MacTopology) VlanView {
	devices := make(map[int64]*DeviceView)
	ports := make(map[int64]map[int]*PortView)
	for _, macTopology := range topology {
		for _, location := range macTopology.Locations {
			device, ok := devices[location.DeviceID]
			if !ok {
				device = &DeviceView{
					DeviceID:   location.DeviceID,
					IPAddress:  location.DeviceIP,
					Hostname:   location.DeviceHostname,
					DeviceType: location.DeviceType,
				}
				devices[location.DeviceID] = device
				ports[location.DeviceID] = make(map[int]*PortView)
			}
			port, ok := ports[location.DeviceID][location.PortNumber]
			if !ok {
				port = &PortView{
					PortNumber:   location.PortNumber,
					PortName:     location.PortName,
					PortType:     location.PortType,
					PortMode:     location.PortMode,
					PortMacCount: location.PortMacCount,
				}
				ports[location.DeviceID][location.PortNumber] = port
			}
			port.Macs = append(port.Macs, MacView{
				MacAddress:     location.MacAddress,
				LearningMethod: location.LearningMethod,
				IsSource:       location.IsSource,
				HopCount:       location.HopCount,
			})
		}
	}

	view := VlanView{VlanID: vlanID, Devices: make([]DeviceView, 0, len(devices))}
	for deviceID, device := range devices {
		for _, port := range ports[deviceID] {
			sort.Slice(port.Macs, func(i, j int) bool {
				return port.Macs[i].MacAddress < port.Macs[j].MacAddress
			})
			device.Ports = append(device.Ports, *port)
		}
		sort.Slice(device.Ports, func(i, j int) bool {
			return device.Ports[i].PortNumber < device.Ports[j].PortNumber
		})
		view.Devices = append(view.Devices, *device)
	}
	sort.Slice(view.Devices, func(i, j int) bool {
		return util.CompareIP(view.Devices[i].IPAddress, view.Devices[j].IPAddress) < 0
	})
	return view
}
