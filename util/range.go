package util

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// MaxRangeSpan - Largest number of values a single "a-b" token may expand to.
// Larger tokens are dropped as malformed.
const MaxRangeSpan = 4096

// ExpandPortRange expands a range list into individual values.
// Supports formats like:
//   - "7" -> [7]
//   - "1-4" -> [1, 2, 3, 4]
//   - "1-4,6,8-10" -> [1, 2, 3, 4, 6, 8, 9, 10]
//
// Unlike a strict validator, malformed tokens ("x", "5-1", "1-2-3", spans over MaxRangeSpan) are
// dropped instead of failing the whole list. The result is sorted and deduplicated.
func ExpandPortRange(list string) []int {
	return expandRange(list, 0, math.MaxInt, false)
}

// ExpandPortList expands a port list, dropping every token with a value outside 1..maxPort.
func ExpandPortList(list string, maxPort int) []int {
	return expandRange(list, 1, maxPort, false)
}

// ExpandVLANList expands a VLAN list ("14,18,29" or "2-4094"), keeping only IDs in 1..4094.
// Range bounds are clamped to that interval before expansion.
func ExpandVLANList(list string) []int {
	return expandRange(list, 1, 4094, true)
}

// expandRange expands the tokens of list within lo..hi. Out-of-bound single values are dropped.
// Out-of-bound ranges are clamped when clamp is set, dropped otherwise.
func expandRange(list string, lo int, hi int, clamp bool) []int {
	var result []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "-") {
			value, err := strconv.Atoi(part)
			if err != nil || value < lo || value > hi {
				continue
			}
			result = append(result, value)
			continue
		}

		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			continue
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			continue
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil || start > end {
			continue
		}
		if clamp {
			start = max(start, lo)
			end = min(end, hi)
			if start > end {
				continue
			}
		} else if start < lo || end > hi {
			continue
		}
		// Bounds are non-negative here, so the difference cannot overflow
		if end-start >= MaxRangeSpan {
			continue
		}
		for i := start; i <= end; i++ {
			result = append(result, i)
		}
	}

	sort.Ints(result)
	return dedupInts(result)
}

// ValidVLANID reports whether the ID is in the usable 802.1Q range.
func ValidVLANID(vlanID int) bool {
	return vlanID >= 1 && vlanID <= 4094
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}
