package util

import (
	"net/netip"
	"path/filepath"
	"strings"
)

// UnderscoreIP turns "192.168.1.10" into "192_168_1_10", used for synthesized hostnames.
func UnderscoreIP(ip string) string {
	return strings.ReplaceAll(ip, ".", "_")
}

// IPFromFilename derives a device IP from a dump file name such as
// "192_168_1_10.mac" or "192.168.1.10.cfg". Returns false if no IPv4 address can be derived.
func IPFromFilename(path string) (string, bool) {
	name := filepath.Base(path)
	candidate := strings.ReplaceAll(name, "_", ".")
	// Strip extensions until the remainder parses as an address.
	for {
		if addr, err := netip.ParseAddr(candidate); err == nil && addr.Is4() {
			return addr.String(), true
		}
		dot := strings.LastIndex(candidate, ".")
		if dot <= 0 {
			return "", false
		}
		candidate = candidate[:dot]
	}
}

// CompareIP orders two device addresses numerically when both parse, lexically otherwise.
func CompareIP(a, b string) int {
	addrA, errA := netip.ParseAddr(a)
	addrB, errB := netip.ParseAddr(b)
	if errA == nil && errB == nil {
		return addrA.Compare(addrB)
	}
	return strings.Compare(a, b)
}
