// Package db stores devices, ports, VLANs and MAC sightings, and records import history.
package db

import (
	"context"
	"fmt"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

// PortWithVlans - A port and its VLAN memberships.
type PortWithVlans struct {
	Port        common.Port
	Assignments []common.PortVlanAssignment
}

// Tx - Writes of one configuration import, applied all-or-nothing.
type Tx interface {
	// UpsertDevice - Insert or update the device keyed by IP address. Returns its ID.
	UpsertDevice(ctx context.Context, device common.Device) (int64, error)
	// UpsertVlan - Insert or update the VLAN keyed by tag. The latest import wins.
	UpsertVlan(ctx context.Context, vlan common.Vlan) error
	// UpsertPort - Insert or update the port keyed by (device, number). Returns its ID.
	UpsertPort(ctx context.Context, port common.Port) (int64, error)
	// UpsertPortVlan - Insert or update the membership keyed by (device, port, vlan, mode).
	UpsertPortVlan(ctx context.Context, assignment common.PortVlanAssignment) error
}

// Store - Relational storage of the L2 model.
type Store interface {
	// InTx runs fn in a transaction, committed only if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// DeviceByIP - The device with the IP address, or util.ErrNotFound.
	DeviceByIP(ctx context.Context, ip string) (*common.Device, error)
	// PortsWithVlans - Ports of the device ordered by number, with their memberships.
	PortsWithVlans(ctx context.Context, deviceID int64) ([]PortWithVlans, error)
	// UpsertMacSighting - Insert or refresh the sighting keyed by (mac, device, port, vlan). Returns its ID.
	// A refresh keeps the classification and any description or client type not supplied again.
	UpsertMacSighting(ctx context.Context, sighting common.MacSighting) (int64, error)
	// VlanMacAddresses - Distinct addresses sighted in the VLAN, sorted.
	VlanMacAddresses(ctx context.Context, vlanID int) ([]string, error)
	// MacLocations - Sightings of the address in the VLAN joined with their device and port,
	// ordered by sighting ID. Sightings with a missing device or port are left out.
	MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error)
	// SetMacLocationTypes - Persist IsSource and HopCount of the sightings.
	SetMacLocationTypes(ctx context.Context, locations []common.MacLocation) error
	// DeviceStats - Counters per device, ordered by IP address.
	DeviceStats(ctx context.Context) ([]common.DeviceStats, error)
	Close() error
}

// Open - Open the store selected by the configuration.
func Open(ctx context.Context, storage common.StorageConfig) (Store, error) {
	switch storage.Driver {
	case common.StorageDriverMemory, "":
		return NewMemoryStore(), nil
	case common.StorageDriverPostgres:
		return OpenPostgresStore(ctx, storage.DSN)
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", util.ErrInvalidConfig, storage.Driver)
}
