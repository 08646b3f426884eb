package parsers

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/mac"
	"dev.hon.one/l2scheme/util"
	log "github.com/sirupsen/logrus"
)

var oltHostnameRegex = regexp.MustCompile(`^hostname\s+(\S+)`)
var oltVersionRegex = regexp.MustCompile(`version\s+(\S+)\s+build\s+(\S+)`)
var oltInterfaceRegex = regexp.MustCompile(`(?i)^interface\s+((TGigaEthernet|GigaEthernet|EPON)(\d+)/(\d+))(?::(\d+))?\s*$`)
var oltModeRegex = regexp.MustCompile(`^switchport mode\s+(\S+)`)
var oltAllowedRegex = regexp.MustCompile(`^switchport trunk vlan-allowed\s+(\S.*)$`)
var oltPvidRegex = regexp.MustCompile(`^switchport pvid\s+(\d+)`)
var oltBindOnuRegex = regexp.MustCompile(`(?i)^epon bind-onu mac\s+(\S+)\s+(\d+)`)
var oltSubscriberVlanRegex = regexp.MustCompile(`^epon onu port 1 ctc vlan mode tag\s+(\d+)`)
var oltSlaRegex = regexp.MustCompile(`^epon sla (upstream|downstream) pir\s+(\d+)`)

type oltInterfaceKind int

const (
	oltGiga oltInterfaceKind = iota
	oltTGiga
	oltEPON
	oltSubscriber
)

// Bases of the wide port-number encoding, used when an interface does not fit the compact one.
const (
	oltWideKindBase = 10_000_000
	oltWideSlotBase = 100_000
	oltWidePortBase = 1_000
)

// Largest slot, port and subscriber ID the wide encoding holds without overlap.
// Interfaces past them are skipped.
const (
	oltMaxSlot = 99
	oltMaxPort = 99
	oltMaxSub  = 999
)

// oltPortNumber returns the numeric identity of an OLT interface.
// The compact encoding (slot*10+port with per-kind offsets, 1000+slot*100+port*10+sub for
// subscribers) is used while every field fits its digit, otherwise the disjoint wide encoding
// kind*10M + slot*100k + port*1k + sub. The two encodings never overlap while the fields
// stay within oltMaxSlot, oltMaxPort and oltMaxSub.
func oltPortNumber(kind oltInterfaceKind, slot int, port int, sub int) int {
	if slot <= 4 && port <= 9 && sub <= 9 {
		switch kind {
		case oltGiga:
			return slot*10 + port
		case oltTGiga:
			return 50 + slot*10 + port
		case oltEPON:
			return 100 + slot*10 + port
		case oltSubscriber:
			return 1000 + slot*100 + port*10 + sub
		}
	}
	return (int(kind)+1)*oltWideKindBase + slot*oltWideSlotBase + port*oltWidePortBase + sub
}

type oltBlock struct {
	port       *common.Port
	epon       *common.EponPort
	subscriber *common.Subscriber
}

// ParseOLTConfig parses an OLT/EPON running configuration made of interface blocks.
func ParseOLTConfig(text string, deviceIP string) *DeviceConfig {
	config := &DeviceConfig{
		Device: common.Device{
			IPAddress:  deviceIP,
			DeviceType: string(DeviceTypeOLT),
		},
	}

	var ports []*common.Port
	var eponPorts []*common.EponPort
	var subscribers []*common.Subscriber
	var block *oltBlock

	for _, rawLine := range splitLines(text) {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		indented := rawLine[0] == ' ' || rawLine[0] == '\t'
		if indented {
			if block != nil {
				applyOLTBodyLine(block, line)
			}
			continue
		}
		block = nil

		if result := oltHostnameRegex.FindStringSubmatch(line); result != nil {
			config.Device.Hostname = result[1]
			config.Directives++
			continue
		}
		if result := oltVersionRegex.FindStringSubmatch(line); result != nil {
			config.Device.Firmware = fmt.Sprintf("%s build %s", result[1], result[2])
			config.Directives++
			continue
		}
		result := oltInterfaceRegex.FindStringSubmatch(line)
		if result == nil {
			continue
		}
		config.Directives++
		block = newOLTBlock(result)
		if block == nil {
			continue
		}
		ports = append(ports, block.port)
		if block.epon != nil {
			eponPorts = append(eponPorts, block.epon)
		}
		if block.subscriber != nil {
			subscribers = append(subscribers, block.subscriber)
		}
	}

	if strings.Contains(text, "OLT") {
		config.Device.Model = "OLT_EPON"
	}
	if config.Device.Hostname == "" {
		config.Device.Hostname = "OLT_" + util.UnderscoreIP(deviceIP)
	}

	bindings := make(map[string]string)
	for _, epon := range eponPorts {
		for _, binding := range epon.Bindings {
			bindings[binding.InterfaceName] = binding.MacAddress
		}
		config.EponPorts = append(config.EponPorts, *epon)
	}
	for _, subscriber := range subscribers {
		if subscriber.MacAddress == "" {
			subscriber.MacAddress = bindings[subscriber.InterfaceName]
		}
		config.Subscribers = append(config.Subscribers, *subscriber)
	}

	vlanSet := make(map[int]bool)
	seenPorts := make(map[int]bool)
	for _, port := range ports {
		if seenPorts[port.Number] {
			log.WithFields(log.Fields{
				"port_name":   port.Name,
				"port_number": port.Number,
			}).Trace("Duplicate OLT interface block, keeping the first")
			continue
		}
		seenPorts[port.Number] = true
		config.Ports = append(config.Ports, *port)
		config.Assignments = append(config.Assignments, oltAssignments(port)...)
		for _, vlanID := range port.AllowedVlans {
			vlanSet[vlanID] = true
		}
		if port.NativeVlan != nil {
			vlanSet[*port.NativeVlan] = true
		}
	}
	sort.Slice(config.Ports, func(i, j int) bool {
		return config.Ports[i].Number < config.Ports[j].Number
	})

	vlanIDs := make([]int, 0, len(vlanSet))
	for vlanID := range vlanSet {
		vlanIDs = append(vlanIDs, vlanID)
	}
	sort.Ints(vlanIDs)
	for _, vlanID := range vlanIDs {
		config.Vlans = append(config.Vlans, common.Vlan{
			VlanID:      vlanID,
			Name:        fmt.Sprintf("VLAN%d", vlanID),
			Description: fmt.Sprintf("Auto-detected VLAN %d", vlanID),
			Type:        "standard",
		})
	}

	return config
}

func newOLTBlock(result []string) *oltBlock {
	name := result[1]
	kindToken := strings.ToUpper(result[2])
	slot, slotErr := strconv.Atoi(result[3])
	portIndex, portErr := strconv.Atoi(result[4])
	if slotErr != nil || portErr != nil || slot > oltMaxSlot || portIndex > oltMaxPort {
		log.WithField("interface", result[1]).Trace("Skipping OLT interface out of numbering range")
		return nil
	}

	if result[5] != "" {
		if kindToken != "EPON" {
			return nil
		}
		subID, err := strconv.Atoi(result[5])
		if err != nil || subID > oltMaxSub {
			log.WithField("interface", name+":"+result[5]).Trace("Skipping OLT subscriber out of numbering range")
			return nil
		}
		interfaceName := fmt.Sprintf("%s:%d", name, subID)
		port := &common.Port{
			Number:       oltPortNumber(oltSubscriber, slot, portIndex, subID),
			Name:         interfaceName,
			Type:         common.PortTypeEPONAccess,
			Description:  "Subscriber Access Port",
			AdminState:   "up",
			OperState:    "unknown",
			Speed:        "auto",
			Duplex:       "auto",
			Mode:         common.PortModeAccess,
			EponParent:   name,
			SubscriberID: common.IntPtr(subID),
		}
		return &oltBlock{
			port: port,
			subscriber: &common.Subscriber{
				InterfaceName: interfaceName,
				PortName:      name,
				SubscriberID:  subID,
			},
		}
	}

	port := &common.Port{
		Name:       name,
		AdminState: "up",
		OperState:  "unknown",
		Duplex:     "full",
	}
	block := &oltBlock{port: port}
	switch kindToken {
	case "TGIGAETHERNET":
		port.Number = oltPortNumber(oltTGiga, slot, portIndex, 0)
		port.Type = common.PortTypeFiber
		port.Speed = "10G"
	case "GIGAETHERNET":
		port.Number = oltPortNumber(oltGiga, slot, portIndex, 0)
		port.Type = common.PortTypeEthernet
		port.Speed = "1G"
	default:
		port.Number = oltPortNumber(oltEPON, slot, portIndex, 0)
		port.Type = common.PortTypeEPON
		port.Speed = "1000M"
		port.Mode = common.PortModeTrunk
		port.Description = "EPON Port"
		block.epon = &common.EponPort{
			PortName:   name,
			PortNumber: port.Number,
		}
	}
	return block
}

func applyOLTBodyLine(block *oltBlock, line string) {
	port := block.port
	if subscriber := block.subscriber; subscriber != nil {
		switch {
		case strings.HasPrefix(line, "description "):
			subscriber.Description = strings.TrimSpace(strings.TrimPrefix(line, "description "))
			port.Description = subscriber.Description
		case strings.HasPrefix(line, "switchport port-security"):
			subscriber.PortSecurity = true
		}
		if result := oltSubscriberVlanRegex.FindStringSubmatch(line); result != nil {
			if vlanID, err := strconv.Atoi(result[1]); err == nil && util.ValidVLANID(vlanID) {
				subscriber.VlanID = common.IntPtr(vlanID)
				port.NativeVlan = common.IntPtr(vlanID)
			}
		}
		if result := oltSlaRegex.FindStringSubmatch(line); result != nil {
			value, _ := strconv.Atoi(result[2])
			if result[1] == "upstream" {
				subscriber.BandwidthUp = common.IntPtr(value)
			} else {
				subscriber.BandwidthDown = common.IntPtr(value)
			}
		}
		return
	}

	switch {
	case strings.HasPrefix(line, "description "):
		port.Description = strings.TrimSpace(strings.TrimPrefix(line, "description "))
	case line == "shutdown":
		port.AdminState = "down"
	}
	if result := oltModeRegex.FindStringSubmatch(line); result != nil {
		port.Mode = result[1]
		if result[1] == "dot1q-tunnel" {
			port.QinQ = true
		}
	}
	if result := oltAllowedRegex.FindStringSubmatch(line); result != nil {
		port.AllowedVlans = util.ExpandVLANList(result[1])
		if block.epon != nil {
			block.epon.AllowedVlans = port.AllowedVlans
		}
	}
	if result := oltPvidRegex.FindStringSubmatch(line); result != nil {
		if vlanID, err := strconv.Atoi(result[1]); err == nil && util.ValidVLANID(vlanID) {
			port.NativeVlan = common.IntPtr(vlanID)
		}
	}
	if block.epon != nil {
		if result := oltBindOnuRegex.FindStringSubmatch(line); result != nil {
			address, ok := mac.Normalize(result[1])
			onuID, err := strconv.Atoi(result[2])
			if ok && err == nil {
				block.epon.Bindings = append(block.epon.Bindings, common.OnuBinding{
					MacAddress:    address,
					OnuID:         onuID,
					InterfaceName: fmt.Sprintf("%s:%d", block.epon.PortName, onuID),
				})
			}
		}
	}
}

// oltAssignments derives VLAN memberships: allowed list as tagged, pvid or subscriber VLAN as untagged native.
func oltAssignments(port *common.Port) []common.PortVlanAssignment {
	var assignments []common.PortVlanAssignment
	for _, vlanID := range port.AllowedVlans {
		if port.NativeVlan != nil && *port.NativeVlan == vlanID {
			continue
		}
		assignments = append(assignments, common.PortVlanAssignment{
			PortNumber: port.Number,
			VlanID:     vlanID,
			Mode:       common.VlanModeTagged,
			QinQ:       port.QinQ,
		})
	}
	if port.NativeVlan != nil {
		assignments = append(assignments, common.PortVlanAssignment{
			PortNumber: port.Number,
			VlanID:     *port.NativeVlan,
			Mode:       common.VlanModeUntagged,
			Native:     true,
			QinQ:       port.QinQ,
		})
	}
	return assignments
}
