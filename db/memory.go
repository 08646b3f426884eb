package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

type portKey struct {
	deviceID   int64
	portNumber int
}

type portVlanKey struct {
	deviceID int64
	portID   int64
	vlanID   int
	mode     string
}

type sightingKey struct {
	macAddress string
	deviceID   int64
	portID     int64
	vlanID     int
}

type memoryData struct {
	nextID      int64
	devices     map[int64]common.Device
	deviceIPs   map[string]int64
	vlans       map[int]common.Vlan
	ports       map[int64]common.Port
	portNumbers map[portKey]int64
	portVlans   map[portVlanKey]common.PortVlanAssignment
	sightings   map[int64]common.MacSighting
	sightingIDs map[sightingKey]int64
}

func newMemoryData() *memoryData {
	return &memoryData{
		devices:     make(map[int64]common.Device),
		deviceIPs:   make(map[string]int64),
		vlans:       make(map[int]common.Vlan),
		ports:       make(map[int64]common.Port),
		portNumbers: make(map[portKey]int64),
		portVlans:   make(map[portVlanKey]common.PortVlanAssignment),
		sightings:   make(map[int64]common.MacSighting),
		sightingIDs: make(map[sightingKey]int64),
	}
}

func (data *memoryData) clone() *memoryData {
	clone := &memoryData{
		nextID:      data.nextID,
		devices:     make(map[int64]common.Device, len(data.devices)),
		deviceIPs:   make(map[string]int64, len(data.deviceIPs)),
		vlans:       make(map[int]common.Vlan, len(data.vlans)),
		ports:       make(map[int64]common.Port, len(data.ports)),
		portNumbers: make(map[portKey]int64, len(data.portNumbers)),
		portVlans:   make(map[portVlanKey]common.PortVlanAssignment, len(data.portVlans)),
		sightings:   data.sightings,
		sightingIDs: data.sightingIDs,
	}
	for key, value := range data.devices {
		clone.devices[key] = value
	}
	for key, value := range data.deviceIPs {
		clone.deviceIPs[key] = value
	}
	for key, value := range data.vlans {
		clone.vlans[key] = value
	}
	for key, value := range data.ports {
		clone.ports[key] = value
	}
	for key, value := range data.portNumbers {
		clone.portNumbers[key] = value
	}
	for key, value := range data.portVlans {
		clone.portVlans[key] = value
	}
	return clone
}

func (data *memoryData) newID() int64 {
	data.nextID++
	return data.nextID
}

// MemoryStore - Store kept in process memory. Transactions work on a copy swapped in on commit.
type MemoryStore struct {
	mutex sync.Mutex
	data  *memoryData
}

// NewMemoryStore - Create an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

type memoryTx struct {
	data *memoryData
}

// InTx - Run fn against a copy of the configuration tables and keep the copy if fn succeeds.
func (store *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	tx := &memoryTx{data: store.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	store.data = tx.data
	return nil
}

func (tx *memoryTx) UpsertDevice(ctx context.Context, device common.Device) (int64, error) {
	if device.IPAddress == "" {
		return 0, fmt.Errorf("device without ip address: %w", util.ErrInvalidConfig)
	}
	id, ok := tx.data.deviceIPs[device.IPAddress]
	if !ok {
		id = tx.data.newID()
		tx.data.deviceIPs[device.IPAddress] = id
	}
	device.ID = id
	tx.data.devices[id] = device
	return id, nil
}

func (tx *memoryTx) UpsertVlan(ctx context.Context, vlan common.Vlan) error {
	if !util.ValidVLANID(vlan.VlanID) {
		return fmt.Errorf("vlan %d: %w", vlan.VlanID, util.ErrInvalidConfig)
	}
	tx.data.vlans[vlan.VlanID] = vlan
	return nil
}

func (tx *memoryTx) UpsertPort(ctx context.Context, port common.Port) (int64, error) {
	if _, ok := tx.data.devices[port.DeviceID]; !ok {
		return 0, fmt.Errorf("device %d: %w", port.DeviceID, util.ErrNotFound)
	}
	key := portKey{deviceID: port.DeviceID, portNumber: port.Number}
	id, ok := tx.data.portNumbers[key]
	if !ok {
		id = tx.data.newID()
		tx.data.portNumbers[key] = id
	}
	port.ID = id
	tx.data.ports[id] = port
	return id, nil
}

func (tx *memoryTx) UpsertPortVlan(ctx context.Context, assignment common.PortVlanAssignment) error {
	if _, ok := tx.data.ports[assignment.PortID]; !ok {
		return fmt.Errorf("port %d: %w", assignment.PortID, util.ErrNotFound)
	}
	if _, ok := tx.data.vlans[assignment.VlanID]; !ok {
		return fmt.Errorf("vlan %d: %w", assignment.VlanID, util.ErrNotFound)
	}
	key := portVlanKey{
		deviceID: assignment.DeviceID,
		portID:   assignment.PortID,
		vlanID:   assignment.VlanID,
		mode:     assignment.Mode,
	}
	tx.data.portVlans[key] = assignment
	return nil
}

// DeviceByIP - Look up a device.
func (store *MemoryStore) DeviceByIP(ctx context.Context, ip string) (*common.Device, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	id, ok := store.data.deviceIPs[ip]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", ip, util.ErrNotFound)
	}
	device := store.data.devices[id]
	return &device, nil
}

// PortsWithVlans - Ports of a device.
func (store *MemoryStore) PortsWithVlans(ctx context.Context, deviceID int64) ([]PortWithVlans, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	var result []PortWithVlans
	for _, port := range store.data.ports {
		if port.DeviceID == deviceID {
			result = append(result, PortWithVlans{
				Port:        port,
				Assignments: store.data.assignmentsOf(port.ID),
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Port.Number < result[j].Port.Number
	})
	return result, nil
}

func (data *memoryData) assignmentsOf(portID int64) []common.PortVlanAssignment {
	var assignments []common.PortVlanAssignment
	for key, assignment := range data.portVlans {
		if key.portID == portID {
			assignments = append(assignments, assignment)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].VlanID != assignments[j].VlanID {
			return assignments[i].VlanID < assignments[j].VlanID
		}
		return assignments[i].Mode < assignments[j].Mode
	})
	return assignments
}

// UpsertMacSighting - Insert or refresh a sighting.
func (store *MemoryStore) UpsertMacSighting(ctx context.Context, sighting common.MacSighting) (int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	data := store.data
	if _, ok := data.devices[sighting.DeviceID]; !ok {
		return 0, fmt.Errorf("device %d: %w", sighting.DeviceID, util.ErrNotFound)
	}
	if _, ok := data.ports[sighting.PortID]; !ok {
		return 0, fmt.Errorf("port %d: %w", sighting.PortID, util.ErrNotFound)
	}

	key := sightingKey{
		macAddress: sighting.MacAddress,
		deviceID:   sighting.DeviceID,
		portID:     sighting.PortID,
		vlanID:     sighting.VlanID,
	}
	if id, ok := data.sightingIDs[key]; ok {
		existing := data.sightings[id]
		existing.LastSeen = sighting.LastSeen
		existing.LearningMethod = sighting.LearningMethod
		if sighting.IPAddress != "" {
			existing.IPAddress = sighting.IPAddress
		}
		if sighting.Description != "" {
			existing.Description = sighting.Description
		}
		if sighting.ClientType != "" {
			existing.ClientType = sighting.ClientType
		}
		data.sightings[id] = existing
		return id, nil
	}

	sighting.ID = data.newID()
	sighting.IsSource = nil
	sighting.HopCount = nil
	data.sightingIDs[key] = sighting.ID
	data.sightings[sighting.ID] = sighting
	return sighting.ID, nil
}

// VlanMacAddresses - Addresses sighted in a VLAN.
func (store *MemoryStore) VlanMacAddresses(ctx context.Context, vlanID int) ([]string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	seen := make(map[string]bool)
	var macAddresses []string
	for _, sighting := range store.data.sightings {
		if sighting.VlanID == vlanID && !seen[sighting.MacAddress] {
			seen[sighting.MacAddress] = true
			macAddresses = append(macAddresses, sighting.MacAddress)
		}
	}
	sort.Strings(macAddresses)
	return macAddresses, nil
}

// MacLocations - Sightings of an address in a VLAN with device, port and population.
func (store *MemoryStore) MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	data := store.data
	var locations []common.MacLocation
	for _, sighting := range data.sightings {
		if sighting.MacAddress != macAddress || sighting.VlanID != vlanID {
			continue
		}
		device, ok := data.devices[sighting.DeviceID]
		if !ok {
			continue
		}
		port, ok := data.ports[sighting.PortID]
		if !ok {
			continue
		}
		locations = append(locations, common.MacLocation{
			SightingID:     sighting.ID,
			MacAddress:     sighting.MacAddress,
			VlanID:         sighting.VlanID,
			DeviceID:       device.ID,
			DeviceIP:       device.IPAddress,
			DeviceHostname: device.Hostname,
			DeviceType:     device.DeviceType,
			PortID:         port.ID,
			PortNumber:     port.Number,
			PortName:       port.Name,
			PortType:       port.Type,
			PortMode:       common.EffectivePortMode(port, data.assignmentsOf(port.ID)),
			PortMacCount:   data.portPopulation(sighting.DeviceID, sighting.PortID, sighting.VlanID),
			IPAddress:      sighting.IPAddress,
			Description:    sighting.Description,
			ClientType:     sighting.ClientType,
			LearningMethod: sighting.LearningMethod,
			LastSeen:       sighting.LastSeen,
			IsSource:       sighting.IsSource,
			HopCount:       sighting.HopCount,
		})
	}
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].SightingID < locations[j].SightingID
	})
	return locations, nil
}

func (data *memoryData) portPopulation(deviceID int64, portID int64, vlanID int) int {
	count := 0
	for _, sighting := range data.sightings {
		if sighting.DeviceID == deviceID && sighting.PortID == portID && sighting.VlanID == vlanID {
			count++
		}
	}
	return count
}

// SetMacLocationTypes - Persist classifications.
func (store *MemoryStore) SetMacLocationTypes(ctx context.Context, locations []common.MacLocation) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	for _, location := range locations {
		sighting, ok := store.data.sightings[location.SightingID]
		if !ok {
			return fmt.Errorf("sighting %d: %w", location.SightingID, util.ErrNotFound)
		}
		sighting.IsSource = location.IsSource
		sighting.HopCount = location.HopCount
		store.data.sightings[location.SightingID] = sighting
	}
	return nil
}

// DeviceStats - Counters per device.
func (store *MemoryStore) DeviceStats(ctx context.Context) ([]common.DeviceStats, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	data := store.data
	stats := make(map[int64]*common.DeviceStats, len(data.devices))
	vlans := make(map[int64]map[int]bool, len(data.devices))
	for id, device := range data.devices {
		stats[id] = &common.DeviceStats{
			DeviceID:   id,
			IPAddress:  device.IPAddress,
			Hostname:   device.Hostname,
			DeviceType: device.DeviceType,
		}
		vlans[id] = make(map[int]bool)
	}
	for _, port := range data.ports {
		if entry, ok := stats[port.DeviceID]; ok {
			entry.TotalPorts++
		}
	}
	for key := range data.portVlans {
		if deviceVlans, ok := vlans[key.deviceID]; ok {
			deviceVlans[key.vlanID] = true
		}
	}
	for _, sighting := range data.sightings {
		entry, ok := stats[sighting.DeviceID]
		if !ok {
			continue
		}
		entry.TotalMacs++
		if sighting.IsSource != nil {
			if *sighting.IsSource {
				entry.SourceMacs++
			} else {
				entry.TransitMacs++
			}
		}
	}

	result := make([]common.DeviceStats, 0, len(stats))
	for id, entry := range stats {
		entry.TotalVlans = len(vlans[id])
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return util.CompareIP(result[i].IPAddress, result[j].IPAddress) < 0
	})
	return result, nil
}

// Close - Nothing to release.
func (store *MemoryStore) Close() error {
	return nil
}
