package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

//go:embed schema.sql
var schemaSQL string

const queryUpsertDevice = `INSERT INTO devices (ip_address, hostname, device_type, model, firmware_version, serial_number, hardware_version, mac_address, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (ip_address) DO UPDATE SET
    hostname = EXCLUDED.hostname,
    device_type = EXCLUDED.device_type,
    model = EXCLUDED.model,
    firmware_version = EXCLUDED.firmware_version,
    serial_number = EXCLUDED.serial_number,
    hardware_version = EXCLUDED.hardware_version,
    mac_address = EXCLUDED.mac_address,
    description = EXCLUDED.description,
    updated_at = now()
RETURNING id`

const queryUpsertVlan = `INSERT INTO vlans (vlan_id, name, description, type)
VALUES ($1, $2, $3, $4)
ON CONFLICT (vlan_id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    type = EXCLUDED.type`

const queryUpsertPort = `INSERT INTO ports (device_id, port_number, port_name, port_type, description, admin_state, oper_state, speed, duplex, mode, native_vlan, qinq_enabled, epon_parent, subscriber_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (device_id, port_number) DO UPDATE SET
    port_name = EXCLUDED.port_name,
    port_type = EXCLUDED.port_type,
    description = EXCLUDED.description,
    admin_state = EXCLUDED.admin_state,
    oper_state = EXCLUDED.oper_state,
    speed = EXCLUDED.speed,
    duplex = EXCLUDED.duplex,
    mode = EXCLUDED.mode,
    native_vlan = EXCLUDED.native_vlan,
    qinq_enabled = EXCLUDED.qinq_enabled,
    epon_parent = EXCLUDED.epon_parent,
    subscriber_id = EXCLUDED.subscriber_id
RETURNING id`

const queryUpsertPortVlan = `INSERT INTO port_vlans (device_id, port_id, vlan_id, mode, native_vlan, qinq_enabled, outer_vlan, inner_vlan)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (device_id, port_id, vlan_id, mode) DO UPDATE SET
    native_vlan = EXCLUDED.native_vlan,
    qinq_enabled = EXCLUDED.qinq_enabled,
    outer_vlan = EXCLUDED.outer_vlan,
    inner_vlan = EXCLUDED.inner_vlan`

const querySelectDeviceByIP = `SELECT id, ip_address, hostname, device_type, model, firmware_version, serial_number, hardware_version, mac_address, description
FROM devices WHERE ip_address = $1`

const querySelectPorts = `SELECT id, device_id, port_number, port_name, port_type, description, admin_state, oper_state, speed, duplex, mode, native_vlan, qinq_enabled, epon_parent, subscriber_id
FROM ports WHERE device_id = $1 ORDER BY port_number`

const querySelectPortVlans = `SELECT device_id, port_id, vlan_id, mode, native_vlan, qinq_enabled, outer_vlan, inner_vlan
FROM port_vlans WHERE device_id = $1 ORDER BY port_id, vlan_id, mode`

const queryUpsertMacSighting = `INSERT INTO mac_addresses (mac_address, vlan_id, device_id, port_id, ip_address, description, client_type, learning_method, last_seen)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (mac_address, device_id, port_id, vlan_id) DO UPDATE SET
    last_seen = EXCLUDED.last_seen,
    learning_method = EXCLUDED.learning_method,
    ip_address = COALESCE(NULLIF(EXCLUDED.ip_address, ''), mac_addresses.ip_address),
    description = COALESCE(NULLIF(EXCLUDED.description, ''), mac_addresses.description),
    client_type = COALESCE(NULLIF(EXCLUDED.client_type, ''), mac_addresses.client_type)
RETURNING id`

const querySelectVlanMacAddresses = `SELECT DISTINCT mac_address FROM mac_addresses WHERE vlan_id = $1 ORDER BY mac_address`

// Inner joins leave out sightings whose device or port no longer exists.
const querySelectMacLocations = `SELECT m.id, m.mac_address, m.vlan_id,
    d.id, d.ip_address, d.hostname, d.device_type,
    p.id, p.port_number, p.port_name, p.port_type,
    COALESCE(NULLIF(p.mode, ''), CASE
        WHEN EXISTS (SELECT 1 FROM port_vlans pv WHERE pv.port_id = p.id AND (pv.mode = 'untagged' OR pv.native_vlan))
            AND EXISTS (SELECT 1 FROM port_vlans pv WHERE pv.port_id = p.id AND pv.mode = 'tagged' AND NOT pv.native_vlan) THEN 'hybrid'
        WHEN EXISTS (SELECT 1 FROM port_vlans pv WHERE pv.port_id = p.id AND (pv.mode = 'untagged' OR pv.native_vlan)) THEN 'access'
        WHEN EXISTS (SELECT 1 FROM port_vlans pv WHERE pv.port_id = p.id AND pv.mode = 'tagged') THEN 'trunk'
        ELSE 'unknown'
    END) AS port_mode,
    (SELECT COUNT(*) FROM mac_addresses c WHERE c.device_id = m.device_id AND c.port_id = m.port_id AND c.vlan_id = m.vlan_id) AS port_mac_count,
    m.ip_address, m.description, m.client_type, m.learning_method, m.last_seen, m.is_source, m.hop_count
FROM mac_addresses m
JOIN devices d ON d.id = m.device_id
JOIN ports p ON p.id = m.port_id
WHERE m.mac_address = $1 AND m.vlan_id = $2
ORDER BY m.id`

const queryUpdateMacLocationType = `UPDATE mac_addresses SET is_source = $1, hop_count = $2 WHERE id = $3`

const querySelectDeviceStats = `SELECT d.id, d.ip_address, d.hostname, d.device_type,
    (SELECT COUNT(*) FROM ports p WHERE p.device_id = d.id),
    (SELECT COUNT(DISTINCT pv.vlan_id) FROM port_vlans pv WHERE pv.device_id = d.id),
    (SELECT COUNT(*) FROM mac_addresses m WHERE m.device_id = d.id),
    (SELECT COUNT(*) FROM mac_addresses m WHERE m.device_id = d.id AND m.is_source),
    (SELECT COUNT(*) FROM mac_addresses m WHERE m.device_id = d.id AND NOT m.is_source)
FROM devices d
ORDER BY d.ip_address::inet`

// PostgresStore - Store backed by PostgreSQL through the pgx database/sql driver.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore - Connect and create missing tables.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Connected to PostgreSQL")
	return store, nil
}

// NewPostgresStore - Wrap an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate - Create missing tables and indexes.
func (store *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := store.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx *sql.Tx
}

// InTx - Run fn in a database transaction.
func (store *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&postgresTx{tx: tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.WithError(rollbackErr).Warn("Failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (tx *postgresTx) UpsertDevice(ctx context.Context, device common.Device) (int64, error) {
	var id int64
	err := tx.tx.QueryRowContext(ctx, queryUpsertDevice,
		device.IPAddress, device.Hostname, device.DeviceType, device.Model, device.Firmware,
		device.SerialNumber, device.HardwareVersion, device.SystemMAC, device.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting device %s: %w", device.IPAddress, err)
	}
	return id, nil
}

func (tx *postgresTx) UpsertVlan(ctx context.Context, vlan common.Vlan) error {
	if _, err := tx.tx.ExecContext(ctx, queryUpsertVlan, vlan.VlanID, vlan.Name, vlan.Description, vlan.Type); err != nil {
		return fmt.Errorf("upserting vlan %d: %w", vlan.VlanID, err)
	}
	return nil
}

func (tx *postgresTx) UpsertPort(ctx context.Context, port common.Port) (int64, error) {
	var id int64
	err := tx.tx.QueryRowContext(ctx, queryUpsertPort,
		port.DeviceID, port.Number, port.Name, port.Type, port.Description, port.AdminState, port.OperState,
		port.Speed, port.Duplex, port.Mode, nullInt(port.NativeVlan), port.QinQ, port.EponParent, nullInt(port.SubscriberID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting port %d: %w", port.Number, err)
	}
	return id, nil
}

func (tx *postgresTx) UpsertPortVlan(ctx context.Context, assignment common.PortVlanAssignment) error {
	_, err := tx.tx.ExecContext(ctx, queryUpsertPortVlan,
		assignment.DeviceID, assignment.PortID, assignment.VlanID, assignment.Mode, assignment.Native,
		assignment.QinQ, nullInt(assignment.OuterVlan), nullInt(assignment.InnerVlan),
	)
	if err != nil {
		return fmt.Errorf("upserting vlan %d of port %d: %w", assignment.VlanID, assignment.PortNumber, err)
	}
	return nil
}

// DeviceByIP - Look up a device.
func (store *PostgresStore) DeviceByIP(ctx context.Context, ip string) (*common.Device, error) {
	var device common.Device
	err := store.db.QueryRowContext(ctx, querySelectDeviceByIP, ip).Scan(
		&device.ID, &device.IPAddress, &device.Hostname, &device.DeviceType, &device.Model, &device.Firmware,
		&device.SerialNumber, &device.HardwareVersion, &device.SystemMAC, &device.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", ip, util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying device %s: %w", ip, err)
	}
	return &device, nil
}

// PortsWithVlans - Ports of a device.
func (store *PostgresStore) PortsWithVlans(ctx context.Context, deviceID int64) ([]PortWithVlans, error) {
	rows, err := store.db.QueryContext(ctx, querySelectPorts, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying ports: %w", err)
	}
	defer rows.Close()

	var result []PortWithVlans
	index := make(map[int64]int)
	for rows.Next() {
		var port common.Port
		var nativeVlan, subscriberID sql.NullInt64
		if err := rows.Scan(&port.ID, &port.DeviceID, &port.Number, &port.Name, &port.Type, &port.Description,
			&port.AdminState, &port.OperState, &port.Speed, &port.Duplex, &port.Mode, &nativeVlan, &port.QinQ,
			&port.EponParent, &subscriberID); err != nil {
			return nil, fmt.Errorf("scanning port: %w", err)
		}
		port.NativeVlan = intFromNull(nativeVlan)
		port.SubscriberID = intFromNull(subscriberID)
		index[port.ID] = len(result)
		result = append(result, PortWithVlans{Port: port})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ports: %w", err)
	}

	vlanRows, err := store.db.QueryContext(ctx, querySelectPortVlans, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying port vlans: %w", err)
	}
	defer vlanRows.Close()
	for vlanRows.Next() {
		var assignment common.PortVlanAssignment
		var outerVlan, innerVlan sql.NullInt64
		if err := vlanRows.Scan(&assignment.DeviceID, &assignment.PortID, &assignment.VlanID, &assignment.Mode,
			&assignment.Native, &assignment.QinQ, &outerVlan, &innerVlan); err != nil {
			return nil, fmt.Errorf("scanning port vlan: %w", err)
		}
		assignment.OuterVlan = intFromNull(outerVlan)
		assignment.InnerVlan = intFromNull(innerVlan)
		i, ok := index[assignment.PortID]
		if !ok {
			continue
		}
		assignment.PortNumber = result[i].Port.Number
		result[i].Assignments = append(result[i].Assignments, assignment)
	}
	if err := vlanRows.Err(); err != nil {
		return nil, fmt.Errorf("reading port vlans: %w", err)
	}
	return result, nil
}

// UpsertMacSighting - Insert or refresh a sighting.
func (store *PostgresStore) UpsertMacSighting(ctx context.Context, sighting common.MacSighting) (int64, error) {
	var id int64
	err := store.db.QueryRowContext(ctx, queryUpsertMacSighting,
		sighting.MacAddress, sighting.VlanID, sighting.DeviceID, sighting.PortID, sighting.IPAddress,
		sighting.Description, sighting.ClientType, sighting.LearningMethod, sighting.LastSeen,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting sighting of %s: %w", sighting.MacAddress, err)
	}
	return id, nil
}

// VlanMacAddresses - Addresses sighted in a VLAN.
func (store *PostgresStore) VlanMacAddresses(ctx context.Context, vlanID int) ([]string, error) {
	rows, err := store.db.QueryContext(ctx, querySelectVlanMacAddresses, vlanID)
	if err != nil {
		return nil, fmt.Errorf("querying addresses of vlan %d: %w", vlanID, err)
	}
	defer rows.Close()

	var macAddresses []string
	for rows.Next() {
		var macAddress string
		if err := rows.Scan(&macAddress); err != nil {
			return nil, fmt.Errorf("scanning address: %w", err)
		}
		macAddresses = append(macAddresses, macAddress)
	}
	return macAddresses, rows.Err()
}

// MacLocations - Sightings of an address in a VLAN with device, port and population.
func (store *PostgresStore) MacLocations(ctx context.Context, macAddress string, vlanID int) ([]common.MacLocation, error) {
	rows, err := store.db.QueryContext(ctx, querySelectMacLocations, macAddress, vlanID)
	if err != nil {
		return nil, fmt.Errorf("querying sightings of %s: %w", macAddress, err)
	}
	defer rows.Close()

	var locations []common.MacLocation
	for rows.Next() {
		var location common.MacLocation
		var isSource sql.NullBool
		var hopCount sql.NullInt64
		if err := rows.Scan(&location.SightingID, &location.MacAddress, &location.VlanID,
			&location.DeviceID, &location.DeviceIP, &location.DeviceHostname, &location.DeviceType,
			&location.PortID, &location.PortNumber, &location.PortName, &location.PortType,
			&location.PortMode, &location.PortMacCount,
			&location.IPAddress, &location.Description, &location.ClientType, &location.LearningMethod,
			&location.LastSeen, &isSource, &hopCount); err != nil {
			return nil, fmt.Errorf("scanning sighting: %w", err)
		}
		if isSource.Valid {
			location.IsSource = common.BoolPtr(isSource.Bool)
		}
		location.HopCount = intFromNull(hopCount)
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

// SetMacLocationTypes - Persist classifications in one transaction.
func (store *PostgresStore) SetMacLocationTypes(ctx context.Context, locations []common.MacLocation) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	statement, err := tx.PrepareContext(ctx, queryUpdateMacLocationType)
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer statement.Close()

	for _, location := range locations {
		var isSource sql.NullBool
		if location.IsSource != nil {
			isSource = sql.NullBool{Bool: *location.IsSource, Valid: true}
		}
		if _, err := statement.ExecContext(ctx, isSource, nullInt(location.HopCount), location.SightingID); err != nil {
			return fmt.Errorf("updating sighting %d: %w", location.SightingID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing classification: %w", err)
	}
	return nil
}

// DeviceStats - Counters per device.
func (store *PostgresStore) DeviceStats(ctx context.Context) ([]common.DeviceStats, error) {
	rows, err := store.db.QueryContext(ctx, querySelectDeviceStats)
	if err != nil {
		return nil, fmt.Errorf("querying device stats: %w", err)
	}
	defer rows.Close()

	var stats []common.DeviceStats
	for rows.Next() {
		var entry common.DeviceStats
		if err := rows.Scan(&entry.DeviceID, &entry.IPAddress, &entry.Hostname, &entry.DeviceType,
			&entry.TotalPorts, &entry.TotalVlans, &entry.TotalMacs, &entry.SourceMacs, &entry.TransitMacs); err != nil {
			return nil, fmt.Errorf("scanning device stats: %w", err)
		}
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}

// Close - Close the connection pool.
func (store *PostgresStore) Close() error {
	return store.db.Close()
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func intFromNull(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	return common.IntPtr(int(value.Int64))
}
