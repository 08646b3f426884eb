package parsers

import (
	"regexp"
	"strings"
)

var oltSubInterfaceRegex = regexp.MustCompile(`epon\d+/\d+:\d+`)
var dlinkCreateVlanTagRegex = regexp.MustCompile(`create vlan \S+ tag \d+`)
var ciscoTokenRegex = regexp.MustCompile(`\b(cisco|ios)\b`)

var oltMarkers = []string{"epon bind-onu", "interface epon", "hostname olt", "epon sla upstream"}
var dlinkMarkers = []string{"dgs-", "des-", "d-link corporation"}

// DetectDeviceType sniffs the dialect of a configuration dump. OLT markers win over D-Link markers.
func DetectDeviceType(text string) DeviceType {
	content := strings.ToLower(text)

	for _, marker := range oltMarkers {
		if strings.Contains(content, marker) {
			return DeviceTypeOLT
		}
	}
	if oltSubInterfaceRegex.MatchString(content) {
		return DeviceTypeOLT
	}

	for _, marker := range dlinkMarkers {
		if strings.Contains(content, marker) {
			return DeviceTypeDLink
		}
	}
	if dlinkCreateVlanTagRegex.MatchString(content) {
		return DeviceTypeDLink
	}

	if ciscoTokenRegex.MatchString(content) {
		return DeviceTypeCisco
	}
	return DeviceTypeUnknown
}

// ParseConfig runs the configuration parser of a dialect. Only OLT and D-Link have one.
func ParseConfig(deviceType DeviceType, text string, deviceIP string) (*DeviceConfig, bool) {
	switch deviceType {
	case DeviceTypeOLT:
		return ParseOLTConfig(text, deviceIP), true
	case DeviceTypeDLink:
		return ParseDLinkConfig(text, deviceIP), true
	}
	return nil, false
}
