// Package mac normalizes hardware addresses and maps them to vendors.
package mac

import (
	"regexp"
	"strings"
)

// UnknownVendor is returned for prefixes missing from the OUI table.
const UnknownVendor = "Unknown"

var canonicalRegex = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// Normalize converts any of "00-11-22-33-44-55", "0011.2233.4455", "00:11:22:33:44:55"
// or "001122334455" into the canonical lower-case colon form.
// The second return value is false for anything that is not exactly 12 hex digits.
func Normalize(raw string) (string, bool) {
	clean := strings.NewReplacer(":", "", "-", "", ".", "").Replace(raw)
	clean = strings.ToLower(clean)
	if len(clean) != 12 {
		return "", false
	}
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}

	var builder strings.Builder
	builder.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			builder.WriteByte(':')
		}
		builder.WriteString(clean[i : i+2])
	}
	return builder.String(), true
}

// IsValid reports whether the address is already in canonical form.
func IsValid(address string) bool {
	return canonicalRegex.MatchString(address)
}

// OUI returns the upper-cased first three octets, e.g. "00:11:22".
func OUI(address string) string {
	if len(address) < 8 {
		return ""
	}
	return strings.ToUpper(address[:8])
}

// Vendor looks up the manufacturer of a canonical address.
func Vendor(address string) string {
	if !IsValid(address) {
		return UnknownVendor
	}
	if vendor, ok := ouiVendors[OUI(address)]; ok {
		return vendor
	}
	return UnknownVendor
}

// Client types assigned to sightings from the vendor name.
const (
	ClientNetworkDevice  = "network_device"
	ClientVirtualMachine = "virtual_machine"
	ClientComputer       = "computer"
	ClientDevice         = "device"
	ClientUnknown        = "unknown"
)

var clientTypeKeywords = []struct {
	clientType string
	keywords   []string
}{
	{ClientNetworkDevice, []string{"cisco", "d-link", "huawei", "hp", "juniper", "aruba"}},
	{ClientVirtualMachine, []string{"vmware", "virtualbox", "qemu", "hyper-v"}},
	{ClientComputer, []string{"intel", "dell", "apple", "lenovo", "asus"}},
}

// ClientType classifies a sighting by the vendor of its address.
func ClientType(vendor string) string {
	if vendor == "" || vendor == UnknownVendor {
		return ClientUnknown
	}
	lower := strings.ToLower(vendor)
	for _, group := range clientTypeKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.clientType
			}
		}
	}
	return ClientDevice
}
