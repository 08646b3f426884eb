package importer

import (
	"strconv"
	"strings"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/db"
	"dev.hon.one/l2scheme/parsers"
)

// PortMapping - A stored port with its effective mode and native VLAN.
type PortMapping struct {
	PortID     int64
	Port       common.Port
	Mode       string
	NativeVlan *int
}

// PortMappings - Lookup of a device's ports by raw MAC table port token.
type PortMappings struct {
	byNumber    map[int]PortMapping
	byName      map[string]PortMapping
	byLowerName map[string]PortMapping
}

// NewPortMappings - Index the ports of a device.
func NewPortMappings(ports []db.PortWithVlans) *PortMappings {
	mappings := &PortMappings{
		byNumber:    make(map[int]PortMapping, len(ports)),
		byName:      make(map[string]PortMapping, len(ports)),
		byLowerName: make(map[string]PortMapping, len(ports)),
	}
	for _, entry := range ports {
		mapping := PortMapping{
			PortID:     entry.Port.ID,
			Port:       entry.Port,
			Mode:       common.EffectivePortMode(entry.Port, entry.Assignments),
			NativeVlan: common.NativeVlanOf(entry.Port, entry.Assignments),
		}
		mappings.byNumber[entry.Port.Number] = mapping
		if entry.Port.Name == "" {
			continue
		}
		if _, ok := mappings.byName[entry.Port.Name]; !ok {
			mappings.byName[entry.Port.Name] = mapping
		}
		lower := strings.ToLower(entry.Port.Name)
		if _, ok := mappings.byLowerName[lower]; !ok {
			mappings.byLowerName[lower] = mapping
		}
	}
	return mappings
}

// Resolve - Find the port of a raw token: exact number, exact name, then case-insensitive name.
func (mappings *PortMappings) Resolve(token string) (PortMapping, bool) {
	token = strings.TrimSpace(token)
	if number, err := strconv.Atoi(token); err == nil {
		if mapping, ok := mappings.byNumber[number]; ok {
			return mapping, true
		}
	}
	if mapping, ok := mappings.byName[token]; ok {
		return mapping, true
	}
	mapping, ok := mappings.byLowerName[strings.ToLower(token)]
	return mapping, ok
}

// Contexts - Port context per number and name, for enriching parsed entries.
func (mappings *PortMappings) Contexts() map[string]parsers.PortContext {
	contexts := make(map[string]parsers.PortContext, len(mappings.byNumber)+len(mappings.byName))
	for number, mapping := range mappings.byNumber {
		contexts[strconv.Itoa(number)] = mapping.context()
	}
	for name, mapping := range mappings.byName {
		contexts[name] = mapping.context()
	}
	return contexts
}

func (mapping PortMapping) context() parsers.PortContext {
	return parsers.PortContext{
		Type:        mapping.Port.Type,
		Description: mapping.Port.Description,
		Mode:        mapping.Mode,
		NativeVlan:  mapping.NativeVlan,
	}
}
