package parsers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/l2scheme/common"
)

const dlinkConfigSample = `#-------------------------------------------------------------------
#                       DGS-3120-24TC Gigabit Ethernet Switch
#                                Configuration
#
#                          Firmware: Build 4.04.013
#           Copyright(C) 2014 D-Link Corporation. All rights reserved.
#-------------------------------------------------------------------

config ports 1-4 description Uplink
config ports 5 speed 100_full state disable
create vlan mgmt tag 80
config vlan default add untagged 5-8
config vlan mgmt add tagged 1-4,25
config vlan vlanid 80 add tagged 26
config snmp system_name sw-access-01
`

const oltConfigSample = `hostname OLT-Core-1
version 10.0.2E build 43455
!
interface GigaEthernet0/1
 description Uplink to core
 switchport mode trunk
 switchport trunk vlan-allowed 100,200-202
 switchport pvid 1
!
interface TGigaEthernet0/1
 switchport mode trunk
!
interface EPON0/1
 switchport mode trunk
 switchport trunk vlan-allowed 100
 epon bind-onu mac 1234.5678.9abc 7
!
interface EPON0/1:7
 description Client 7
 epon onu port 1 ctc vlan mode tag 100
 epon sla upstream pir 20000
 epon sla downstream pir 50000
 switchport port-security
!
interface EPON0/12:15
 epon onu port 1 ctc vlan mode tag 300
`

func portByNumber(t *testing.T, ports []common.Port, number int) common.Port {
	t.Helper()
	for _, port := range ports {
		if port.Number == number {
			return port
		}
	}
	require.Failf(t, "port not found", "port %d", number)
	return common.Port{}
}

func TestParseDLinkConfigPorts(t *testing.T) {
	config := ParseDLinkConfig("config ports 1-4 description Uplink\n", "10.0.0.2")

	require.Len(t, config.Ports, DLinkDefaultPortCount)
	for number := 1; number <= 4; number++ {
		port := portByNumber(t, config.Ports, number)
		assert.Equal(t, "Uplink", port.Description)
		assert.Equal(t, "up", port.AdminState)
		assert.Equal(t, "auto", port.Speed)
	}
	assert.Equal(t, common.PortTypeFiber, portByNumber(t, config.Ports, 22).Type)
	assert.Equal(t, common.PortTypeEthernet, portByNumber(t, config.Ports, 25).Type)
	assert.Equal(t, common.PortTypeEthernet, portByNumber(t, config.Ports, 5).Type)
	assert.Empty(t, portByNumber(t, config.Ports, 5).Description)
	assert.Equal(t, "DLink_10_0_0_2", config.Device.Hostname)

	for i := 1; i < len(config.Ports); i++ {
		assert.Less(t, config.Ports[i-1].Number, config.Ports[i].Number)
	}
}

func TestParseDLinkConfigSample(t *testing.T) {
	config := ParseDLinkConfig(dlinkConfigSample, "10.0.0.3")

	assert.Equal(t, "DGS-3120-24TC", config.Device.Model)
	assert.Equal(t, "4.04.013", config.Device.Firmware)
	assert.Equal(t, "sw-access-01", config.Device.Hostname)
	assert.Equal(t, "10.0.0.3", config.Device.IPAddress)

	port5 := portByNumber(t, config.Ports, 5)
	assert.Equal(t, "100_full", port5.Speed)
	assert.Equal(t, "full", port5.Duplex)
	assert.Equal(t, "down", port5.AdminState)

	require.Len(t, config.Vlans, 2)
	assert.Equal(t, common.Vlan{VlanID: 1, Name: "default", Description: "VLAN 1", Type: "standard"}, config.Vlans[0])
	assert.Equal(t, 80, config.Vlans[1].VlanID)
	assert.Equal(t, "mgmt", config.Vlans[1].Name)

	require.Len(t, config.Assignments, 10)
	untagged := 0
	for _, assignment := range config.Assignments {
		if assignment.Mode == common.VlanModeUntagged {
			untagged++
			assert.Equal(t, 1, assignment.VlanID)
			assert.True(t, assignment.Native)
		} else {
			assert.Equal(t, 80, assignment.VlanID)
			assert.False(t, assignment.Native)
		}
	}
	assert.Equal(t, 4, untagged)
	assert.Positive(t, config.Directives)
}

func TestParseDLinkConfigDropsOversizedPortLists(t *testing.T) {
	text := "config ports 1-3000000 state enable\n" +
		"config ports 30-2000000000,3 description Lab\n" +
		"config vlan default add untagged 1-3000000,5\n"

	config := ParseDLinkConfig(text, "10.0.0.3")

	assert.Len(t, config.Ports, DLinkDefaultPortCount)
	assert.Equal(t, "Lab", portByNumber(t, config.Ports, 3).Description)
	require.Len(t, config.Assignments, 1)
	assert.Equal(t, 5, config.Assignments[0].PortNumber)
}

func TestParseOLTConfigClampsAllowedVlans(t *testing.T) {
	text := "interface GigaEthernet0/1\n" +
		" switchport mode trunk\n" +
		" switchport trunk vlan-allowed 4090-3000000\n" +
		"!\n"

	config := ParseOLTConfig(text, "10.0.0.5")

	require.Len(t, config.Ports, 1)
	assert.Equal(t, []int{4090, 4091, 4092, 4093, 4094}, config.Ports[0].AllowedVlans)
	assert.Len(t, config.Vlans, 5)
}

func TestParseDLinkConfigIsDeterministic(t *testing.T) {
	assert.Equal(t, ParseDLinkConfig(dlinkConfigSample, "10.0.0.3"), ParseDLinkConfig(dlinkConfigSample, "10.0.0.3"))
}

func TestParseOLTConfig(t *testing.T) {
	config := ParseOLTConfig(oltConfigSample, "10.0.0.4")

	assert.Equal(t, "OLT-Core-1", config.Device.Hostname)
	assert.Equal(t, "10.0.2E build 43455", config.Device.Firmware)
	assert.Equal(t, "OLT_EPON", config.Device.Model)
	assert.Equal(t, "OLT", config.Device.DeviceType)

	numbers := make([]int, 0, len(config.Ports))
	for _, port := range config.Ports {
		numbers = append(numbers, port.Number)
	}
	assert.Equal(t, []int{1, 51, 101, 1017, 40_012_015}, numbers)

	giga := portByNumber(t, config.Ports, 1)
	assert.Equal(t, "GigaEthernet0/1", giga.Name)
	assert.Equal(t, "Uplink to core", giga.Description)
	assert.Equal(t, common.PortModeTrunk, giga.Mode)
	assert.Equal(t, []int{100, 200, 201, 202}, giga.AllowedVlans)
	require.NotNil(t, giga.NativeVlan)
	assert.Equal(t, 1, *giga.NativeVlan)

	assert.Equal(t, common.PortTypeFiber, portByNumber(t, config.Ports, 51).Type)

	epon := portByNumber(t, config.Ports, 101)
	assert.Equal(t, common.PortTypeEPON, epon.Type)
	assert.Equal(t, "1000M", epon.Speed)
	assert.Equal(t, common.PortModeTrunk, epon.Mode)

	sub := portByNumber(t, config.Ports, 1017)
	assert.Equal(t, common.PortTypeEPONAccess, sub.Type)
	assert.Equal(t, common.PortModeAccess, sub.Mode)
	assert.Equal(t, "EPON0/1", sub.EponParent)
	require.NotNil(t, sub.SubscriberID)
	assert.Equal(t, 7, *sub.SubscriberID)
	assert.Equal(t, "Client 7", sub.Description)

	require.Len(t, config.EponPorts, 1)
	assert.Equal(t, []int{100}, config.EponPorts[0].AllowedVlans)
	assert.Equal(t, []common.OnuBinding{{MacAddress: "12:34:56:78:9a:bc", OnuID: 7, InterfaceName: "EPON0/1:7"}}, config.EponPorts[0].Bindings)

	require.Len(t, config.Subscribers, 2)
	subscriber := config.Subscribers[0]
	assert.Equal(t, "EPON0/1:7", subscriber.InterfaceName)
	assert.Equal(t, "12:34:56:78:9a:bc", subscriber.MacAddress)
	assert.Equal(t, common.IntPtr(100), subscriber.VlanID)
	assert.Equal(t, common.IntPtr(20000), subscriber.BandwidthUp)
	assert.Equal(t, common.IntPtr(50000), subscriber.BandwidthDown)
	assert.True(t, subscriber.PortSecurity)
	assert.False(t, config.Subscribers[1].PortSecurity)

	vlanIDs := make([]int, 0, len(config.Vlans))
	for _, vlan := range config.Vlans {
		vlanIDs = append(vlanIDs, vlan.VlanID)
	}
	assert.Equal(t, []int{1, 100, 200, 201, 202, 300}, vlanIDs)
	assert.Equal(t, "Auto-detected VLAN 300", config.Vlans[5].Description)

	assert.Len(t, config.Assignments, 8)
	assert.Contains(t, config.Assignments, common.PortVlanAssignment{PortNumber: 1017, VlanID: 100, Mode: common.VlanModeUntagged, Native: true})
	assert.Contains(t, config.Assignments, common.PortVlanAssignment{PortNumber: 101, VlanID: 100, Mode: common.VlanModeTagged})
}

func TestParseOLTConfigDefaults(t *testing.T) {
	config := ParseOLTConfig("interface GigaEthernet0/2\n description edge\n", "192.168.5.1")

	assert.Equal(t, "OLT_192_168_5_1", config.Device.Hostname)
	assert.Empty(t, config.Device.Model)
	require.Len(t, config.Ports, 1)
	assert.Equal(t, 2, config.Ports[0].Number)
	assert.Empty(t, config.Vlans)
}

func TestOLTPortNumber(t *testing.T) {
	tests := []struct {
		name     string
		kind     oltInterfaceKind
		slot     int
		port     int
		sub      int
		expected int
	}{
		{"giga", oltGiga, 0, 1, 0, 1},
		{"tgiga", oltTGiga, 0, 1, 0, 51},
		{"epon", oltEPON, 0, 1, 0, 101},
		{"subscriber", oltSubscriber, 0, 1, 5, 1015},
		{"wide subscriber id", oltSubscriber, 0, 1, 10, 40_001_010},
		{"wide port", oltGiga, 0, 12, 0, 10_012_000},
		{"wide slot", oltEPON, 5, 1, 0, 30_501_000},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, oltPortNumber(test.kind, test.slot, test.port, test.sub))
		})
	}

	slots := []int{0, 1, 2, 3, 4, 5, 10, 98, oltMaxSlot}
	ports := []int{0, 1, 9, 10, 12, 98, oltMaxPort}
	subs := []int{0, 1, 9, 10, 12, 100, 998, oltMaxSub}
	seen := make(map[int]string)
	for kind := oltGiga; kind <= oltSubscriber; kind++ {
		for _, slot := range slots {
			for _, port := range ports {
				for _, sub := range subs {
					if kind != oltSubscriber && sub > 0 {
						continue
					}
					number := oltPortNumber(kind, slot, port, sub)
					key := fmt.Sprintf("%d %d/%d:%d", kind, slot, port, sub)
					previous, collision := seen[number]
					require.Falsef(t, collision, "%s collides with %s on %d", key, previous, number)
					seen[number] = key
				}
			}
		}
	}
}

func TestParseOLTConfigSkipsInterfacesOutOfRange(t *testing.T) {
	text := "interface EPON0/100\n" +
		" switchport mode trunk\n" +
		"!\n" +
		"interface EPON1/0\n" +
		" switchport mode trunk\n" +
		"!\n" +
		"interface GigaEthernet100/1\n" +
		"!\n" +
		"interface GigaEthernet99999999999999999999/1\n" +
		"!\n" +
		"interface EPON0/1:1000\n" +
		" description too far\n" +
		"!\n" +
		"interface EPON0/1:999\n" +
		" description last\n" +
		"!\n"

	config := ParseOLTConfig(text, "10.0.0.5")

	require.Len(t, config.Ports, 2)
	assert.Equal(t, "EPON1/0", config.Ports[0].Name)
	assert.Equal(t, 110, config.Ports[0].Number)
	assert.Equal(t, 40_001_999, config.Ports[1].Number)
	assert.Equal(t, "EPON0/1:999", config.Ports[1].Name)
	assert.Equal(t, "last", config.Ports[1].Description)
	require.Len(t, config.Subscribers, 1)
	assert.Equal(t, 999, config.Subscribers[0].SubscriberID)
}

func TestDetectDeviceType(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected DeviceType
	}{
		{"olt bind-onu", "interface EPON0/1\n epon bind-onu mac 1234.5678.9abc 7\ninterface EPON0/1:7\n", DeviceTypeOLT},
		{"olt sub interface only", "interface foo\n epon0/1:3\n", DeviceTypeOLT},
		{"olt hostname", "hostname OLT-7\n", DeviceTypeOLT},
		{"dlink create vlan", "create vlan default tag 1\n", DeviceTypeDLink},
		{"dlink model", "DES-3200-28 Fast Ethernet Switch\n", DeviceTypeDLink},
		{"dlink corporation", "Copyright D-Link Corporation\n", DeviceTypeDLink},
		{"cisco", "Cisco IOS Software, Version 15.2\n", DeviceTypeCisco},
		{"unknown", "hello world\n", DeviceTypeUnknown},
		{"empty", "", DeviceTypeUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, DetectDeviceType(test.text))
		})
	}
}

func TestParseConfig(t *testing.T) {
	config, ok := ParseConfig(DeviceTypeOLT, oltConfigSample, "10.0.0.4")
	require.True(t, ok)
	assert.Equal(t, "OLT-Core-1", config.Device.Hostname)

	_, ok = ParseConfig(DeviceTypeCisco, "cisco", "10.0.0.4")
	assert.False(t, ok)
}
