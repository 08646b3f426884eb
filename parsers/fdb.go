package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dev.hon.one/l2scheme/mac"
	"dev.hon.one/l2scheme/util"
	log "github.com/sirupsen/logrus"
)

// Format - MAC table dialect requested by a caller.
type Format string

// Known MAC table dialects.
const (
	FormatAuto        Format = "auto"
	FormatDLink       Format = "dlink"
	FormatDLinkSwitch Format = "dlink_switch"
	FormatOLT         Format = "olt"
	FormatCisco       Format = "cisco"
)

var dashRunRegex = regexp.MustCompile(`-{3,}`)
var dottedMacRegex = regexp.MustCompile(`(?i)\b[0-9a-f]{4}\.[0-9a-f]{4}\.[0-9a-f]{4}\b`)

// fallbackParsers are tried in order when no banner identifies the dump.
var fallbackParsers = []FdbParser{OltFdb{}, DLinkSwitchFdb{}, DLinkFdb{}}

// ParserForFormat - Parser of the requested dialect, nil for FormatAuto.
func ParserForFormat(format Format) (FdbParser, error) {
	switch format {
	case FormatAuto, "":
		return nil, nil
	case FormatDLink:
		return DLinkFdb{}, nil
	case FormatDLinkSwitch:
		return DLinkSwitchFdb{}, nil
	case FormatOLT, FormatCisco:
		return OltFdb{}, nil
	}
	return nil, fmt.Errorf("mac table format %q: %w", format, util.ErrUnsupportedDevice)
}

// DetectFdbFormat picks a dialect from banner and header substrings. Returns nil if nothing matched.
func DetectFdbFormat(text string) FdbParser {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "mac address table (total") || dottedMacRegex.MatchString(text) {
		return OltFdb{}
	}
	if strings.Contains(text, "VID") && strings.Contains(text, "VLAN Name") {
		return DLinkSwitchFdb{}
	}
	if strings.Contains(text, "Command: show fdb") {
		return DLinkFdb{}
	}
	for _, line := range splitLines(text) {
		if strings.Contains(line, "Type") && strings.Contains(line, "Port") && strings.Contains(line, "MAC Address") {
			return DLinkFdb{}
		}
	}
	for _, line := range splitLines(lower) {
		if strings.Contains(line, "vlan") && strings.Contains(line, "mac address") && strings.Contains(line, "ports") {
			return OltFdb{}
		}
	}
	return nil
}

// ParseFdb parses a MAC table dump of unknown dialect.
// Without a recognizable banner every dialect is tried and the first non-empty result wins.
func ParseFdb(text string, device *DeviceContext) []Entry {
	if parser := DetectFdbFormat(text); parser != nil {
		log.WithField("parser", parser.Name()).Trace("Detected MAC table dialect")
		return parser.Parse(text, device)
	}
	for _, parser := range fallbackParsers {
		if entries := parser.Parse(text, device); len(entries) > 0 {
			log.WithField("parser", parser.Name()).Trace("MAC table dialect found by fallback")
			return entries
		}
	}
	return nil
}

// newEntry applies the admission rule shared by all dialects: valid address and integer VLAN.
func newEntry(vlanToken string, macToken string, port string, method string, rawLine string, device *DeviceContext) (Entry, bool) {
	vlanID, err := strconv.Atoi(vlanToken)
	if err != nil {
		return Entry{}, false
	}
	address, ok := mac.Normalize(macToken)
	if !ok || !mac.IsValid(address) {
		return Entry{}, false
	}
	return Entry{
		VlanID:         vlanID,
		MacAddress:     address,
		Port:           port,
		LearningMethod: strings.ToLower(method),
		Vendor:         mac.Vendor(address),
		Device:         device,
		RawLine:        rawLine,
	}, true
}

func isDashSeparator(line string) bool {
	return strings.Trim(line, "- \t") == "" && dashRunRegex.MatchString(line)
}

// PortContext - What is known about a port when enriching entries.
type PortContext struct {
	Type        string
	Description string
	Mode        string
	NativeVlan  *int
}

// EnrichEntries copies port context onto entries whose raw port token is a known port number or name.
func EnrichEntries(entries []Entry, ports map[string]PortContext) []Entry {
	enriched := make([]Entry, len(entries))
	for i, entry := range entries {
		if context, ok := ports[entry.Port]; ok {
			entry.PortType = context.Type
			entry.PortDescription = context.Description
			entry.PortMode = context.Mode
			entry.NativeVlan = context.NativeVlan
		}
		enriched[i] = entry
	}
	return enriched
}
