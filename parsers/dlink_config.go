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
)

// DLinkDefaultPortCount - Ports 1..N always exist on an imported D-Link switch.
const DLinkDefaultPortCount = 28

// DLinkMaxPortNumber - Highest port number accepted in a port list. Stacks of up to
// twelve 48-port units stay below it; tokens past it are dropped as malformed.
const DLinkMaxPortNumber = 576

var dlinkModelRegex = regexp.MustCompile(`(DGS-\S+)`)
var dlinkFirmwareRegex = regexp.MustCompile(`Firmware:\s*Build\s+(\S+)`)
var dlinkHeaderValueRegex = regexp.MustCompile(`^#?\s*(Hardware Version|Serial Number|System MAC Address)\s*:\s*(\S+)`)
var dlinkSystemNameRegex = regexp.MustCompile(`^config snmp system_name\s+(\S.*)$`)
var dlinkPortsRegex = regexp.MustCompile(`^config ports\s+([0-9,\-]+)\s+(\S.*)$`)
var dlinkCreateVlanRegex = regexp.MustCompile(`^create vlan\s+(\S+)\s+tag\s+(\d+)`)
var dlinkVlanMemberRegex = regexp.MustCompile(`^config vlan\s+(vlanid\s+)?(\S+)\s+add\s+(tagged|untagged)\s+([0-9,\-]+)`)

type dlinkConfigParser struct {
	config      *DeviceConfig
	ports       map[int]*common.Port
	vlans       map[int]*common.Vlan
	vlanNames   map[string]int
	assignments map[string]bool
}

// ParseDLinkConfig parses a D-Link CLI configuration dump ("config ports", "create vlan", ...).
func ParseDLinkConfig(text string, deviceIP string) *DeviceConfig {
	parser := &dlinkConfigParser{
		config: &DeviceConfig{
			Device: common.Device{
				IPAddress:  deviceIP,
				DeviceType: "D-Link Switch",
			},
		},
		ports:       make(map[int]*common.Port),
		vlans:       make(map[int]*common.Vlan),
		vlanNames:   map[string]int{"default": 1},
		assignments: make(map[string]bool),
	}

	lines := splitLines(text)
	for _, line := range lines {
		parser.parseDeviceLine(strings.TrimSpace(line))
	}
	for _, line := range lines {
		parser.parsePortLine(strings.TrimSpace(line))
	}
	for _, line := range lines {
		parser.parseVlanLine(strings.TrimSpace(line))
	}

	return parser.finish()
}

func (parser *dlinkConfigParser) parseDeviceLine(line string) {
	device := &parser.config.Device
	if strings.Contains(line, "DGS-") && strings.Contains(line, "Gigabit Ethernet Switch") {
		if result := dlinkModelRegex.FindStringSubmatch(line); result != nil {
			device.Model = result[1]
			device.DeviceType = result[1]
			parser.config.Directives++
		}
	}
	if result := dlinkFirmwareRegex.FindStringSubmatch(line); result != nil {
		device.Firmware = result[1]
		parser.config.Directives++
	}
	if result := dlinkSystemNameRegex.FindStringSubmatch(line); result != nil {
		device.Hostname = strings.Trim(strings.TrimSpace(result[1]), `"`)
		parser.config.Directives++
	}
	if result := dlinkHeaderValueRegex.FindStringSubmatch(line); result != nil {
		switch result[1] {
		case "Hardware Version":
			device.HardwareVersion = result[2]
		case "Serial Number":
			device.SerialNumber = result[2]
		case "System MAC Address":
			if address, ok := mac.Normalize(result[2]); ok {
				device.SystemMAC = address
			}
		}
	}
}

func (parser *dlinkConfigParser) parsePortLine(line string) {
	result := dlinkPortsRegex.FindStringSubmatch(line)
	if result == nil {
		return
	}
	portNumbers := util.ExpandPortList(result[1], DLinkMaxPortNumber)
	if len(portNumbers) == 0 {
		return
	}
	parser.config.Directives++

	rest := result[2]
	for _, portNumber := range portNumbers {
		applyDLinkPortParameters(parser.port(portNumber), rest)
	}
}

// applyDLinkPortParameters applies "key value key value ..." pairs. A description consumes the rest of the line.
func applyDLinkPortParameters(port *common.Port, rest string) {
	for rest != "" {
		key, remainder := cutField(rest)
		if key == "description" {
			port.Description = strings.Trim(strings.TrimSpace(remainder), `"`)
			return
		}
		value, remainder := cutField(remainder)
		switch key {
		case "speed":
			port.Speed = value
			if strings.HasSuffix(value, "_full") {
				port.Duplex = "full"
			} else if strings.HasSuffix(value, "_half") {
				port.Duplex = "half"
			}
		case "state":
			switch value {
			case "enable":
				port.AdminState = "up"
			case "disable":
				port.AdminState = "down"
			}
		case "medium_type":
			switch value {
			case "fiber":
				port.Type = common.PortTypeFiber
			case "copper":
				port.Type = common.PortTypeEthernet
			}
		}
		rest = remainder
	}
}

func (parser *dlinkConfigParser) parseVlanLine(line string) {
	if result := dlinkCreateVlanRegex.FindStringSubmatch(line); result != nil {
		vlanID, err := strconv.Atoi(result[2])
		if err != nil || !util.ValidVLANID(vlanID) {
			return
		}
		parser.config.Directives++
		parser.vlanNames[result[1]] = vlanID
		vlan := parser.vlan(vlanID)
		vlan.Name = result[1]
		return
	}

	result := dlinkVlanMemberRegex.FindStringSubmatch(line)
	if result == nil {
		return
	}
	vlanID, ok := parser.resolveVlan(result[2], result[1] != "")
	if !ok {
		return
	}
	parser.config.Directives++
	vlan := parser.vlan(vlanID)
	if vlanID == 1 && result[2] == "default" {
		vlan.Name = "default"
	}

	mode := common.VlanModeTagged
	if result[3] == "untagged" {
		mode = common.VlanModeUntagged
	}
	for _, portNumber := range util.ExpandPortList(result[4], DLinkMaxPortNumber) {
		key := fmt.Sprintf("%d/%d/%s", portNumber, vlanID, mode)
		if parser.assignments[key] {
			continue
		}
		parser.assignments[key] = true
		parser.port(portNumber)
		parser.config.Assignments = append(parser.config.Assignments, common.PortVlanAssignment{
			PortNumber: portNumber,
			VlanID:     vlanID,
			Mode:       mode,
			Native:     mode == common.VlanModeUntagged,
		})
	}
}

func (parser *dlinkConfigParser) resolveVlan(token string, byID bool) (int, bool) {
	if !byID {
		if vlanID, ok := parser.vlanNames[token]; ok {
			return vlanID, true
		}
	}
	vlanID, err := strconv.Atoi(token)
	if err != nil || !util.ValidVLANID(vlanID) {
		return 0, false
	}
	return vlanID, true
}

func (parser *dlinkConfigParser) port(portNumber int) *common.Port {
	if port, ok := parser.ports[portNumber]; ok {
		return port
	}
	port := newDLinkPort(portNumber)
	parser.ports[portNumber] = port
	return port
}

func (parser *dlinkConfigParser) vlan(vlanID int) *common.Vlan {
	if vlan, ok := parser.vlans[vlanID]; ok {
		return vlan
	}
	vlan := &common.Vlan{
		VlanID:      vlanID,
		Name:        fmt.Sprintf("VLAN%d", vlanID),
		Description: fmt.Sprintf("VLAN %d", vlanID),
		Type:        "standard",
	}
	parser.vlans[vlanID] = vlan
	return vlan
}

func (parser *dlinkConfigParser) finish() *DeviceConfig {
	config := parser.config
	if config.Device.Hostname == "" {
		config.Device.Hostname = "DLink_" + util.UnderscoreIP(config.Device.IPAddress)
	}

	for portNumber := 1; portNumber <= DLinkDefaultPortCount; portNumber++ {
		parser.port(portNumber)
	}
	config.Ports = make([]common.Port, 0, len(parser.ports))
	for _, port := range parser.ports {
		config.Ports = append(config.Ports, *port)
	}
	sort.Slice(config.Ports, func(i, j int) bool {
		return config.Ports[i].Number < config.Ports[j].Number
	})

	config.Vlans = make([]common.Vlan, 0, len(parser.vlans))
	for _, vlan := range parser.vlans {
		config.Vlans = append(config.Vlans, *vlan)
	}
	sort.Slice(config.Vlans, func(i, j int) bool {
		return config.Vlans[i].VlanID < config.Vlans[j].VlanID
	})

	return config
}

func newDLinkPort(portNumber int) *common.Port {
	portType := common.PortTypeEthernet
	if portNumber >= 21 && portNumber <= 24 {
		portType = common.PortTypeFiber
	}
	return &common.Port{
		Number:     portNumber,
		Name:       fmt.Sprintf("Port%d", portNumber),
		Type:       portType,
		AdminState: "up",
		OperState:  "unknown",
		Speed:      "auto",
		Duplex:     "auto",
	}
}

// cutField splits off the first whitespace-separated field.
func cutField(text string) (string, string) {
	text = strings.TrimSpace(text)
	index := strings.IndexAny(text, " \t")
	if index < 0 {
		return text, ""
	}
	return text[:index], strings.TrimSpace(text[index:])
}
