package parsers

import (
	"strings"
)

var oltFdbNoise = []string{"--More--", "CTRL+C", "\x1b"}

// OltFdb - OLT and Cisco-like "show mac address-table" output: Vlan, Mac Address, Type, Ports.
type OltFdb struct{}

// Name - Dialect name.
func (OltFdb) Name() string {
	return "olt"
}

// Parse - Rows after the table banner, header or separator, as [vlan, mac, type, port].
// Pager prompts and terminal control fragments are skipped.
func (OltFdb) Parse(text string, device *DeviceContext) []Entry {
	var entries []Entry
	inTable := false
	for _, rawLine := range splitLines(text) {
		if isPagerNoise(rawLine) {
			continue
		}
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if !inTable {
			lower := strings.ToLower(line)
			inTable = strings.Contains(lower, "mac address table") ||
				(strings.Contains(lower, "vlan") && strings.Contains(lower, "mac address")) ||
				dashRunRegex.MatchString(line)
			continue
		}
		if isDashSeparator(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		entry, ok := newEntry(fields[0], fields[1], fields[3], fields[2], line, device)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func isPagerNoise(line string) bool {
	for _, noise := range oltFdbNoise {
		if strings.Contains(line, noise) {
			return true
		}
	}
	return false
}
