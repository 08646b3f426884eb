package parsers

import (
	"strings"

	"dev.hon.one/l2scheme/mac"
	log "github.com/sirupsen/logrus"
)

// DLinkFdb - Narrow D-Link "show fdb" output: VID, MAC Address, Port, Type.
type DLinkFdb struct{}

// Name - Dialect name.
func (DLinkFdb) Name() string {
	return "dlink"
}

// Parse - Rows after the first dash separator, as [vlan, mac, port, type].
func (DLinkFdb) Parse(text string, device *DeviceContext) []Entry {
	var entries []Entry
	inTable := false
	for _, rawLine := range splitLines(text) {
		line := strings.TrimSpace(rawLine)
		if !inTable {
			inTable = dashRunRegex.MatchString(line)
			continue
		}
		if line == "" || strings.HasPrefix(line, "Command:") || isDashSeparator(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		entry, ok := newEntry(fields[0], fields[1], fields[2], fields[3], line, device)
		if !ok {
			log.WithField("line", line).Trace("Skipping D-Link fdb row")
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// DLinkSwitchFdb - Wide D-Link switch output: VID, VLAN Name, MAC Address, Port, Type.
type DLinkSwitchFdb struct{}

// Name - Dialect name.
func (DLinkSwitchFdb) Name() string {
	return "dlink_switch"
}

// Parse - Rows after a column separator line, as [vid, vlan name..., mac, port, type].
// The address column is located by content so VLAN names containing spaces still parse.
// Self entries on the CPU port are not learned addresses and are dropped.
func (DLinkSwitchFdb) Parse(text string, device *DeviceContext) []Entry {
	var entries []Entry
	inTable := false
	for _, rawLine := range splitLines(text) {
		line := strings.TrimSpace(rawLine)
		if !inTable {
			inTable = len(dashRunRegex.FindAllString(line, -1)) > 1
			continue
		}
		if line == "" || strings.HasPrefix(line, "Command:") || isDashSeparator(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		macIndex := -1
		for i := 1; i+2 < len(fields); i++ {
			if _, ok := mac.Normalize(fields[i]); ok {
				macIndex = i
				break
			}
		}
		if macIndex < 0 {
			continue
		}
		port := fields[macIndex+1]
		method := fields[macIndex+2]
		if strings.EqualFold(port, "CPU") || strings.EqualFold(method, "Self") {
			continue
		}
		entry, ok := newEntry(fields[0], fields[macIndex], port, method, line, device)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
