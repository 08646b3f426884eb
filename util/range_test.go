package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandPortRange(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []int
	}{
		{name: "single value", list: "7", want: []int{7}},
		{name: "simple range", list: "1-4", want: []int{1, 2, 3, 4}},
		{name: "mixed", list: "1-4,6,8-10", want: []int{1, 2, 3, 4, 6, 8, 9, 10}},
		{name: "duplicates removed", list: "1-3,2-4", want: []int{1, 2, 3, 4}},
		{name: "spaces", list: " 1 - 2 , 5", want: []int{1, 2, 5}},
		{name: "malformed tokens dropped", list: "1,x,5-1,1-2-3,3", want: []int{1, 3}},
		{name: "empty", list: "", want: nil},
		{name: "oversized range dropped", list: "1-2000000000,5", want: []int{5}},
		{name: "largest allowed span", list: "10-4105", want: expected(10, 4105)},
		{name: "one past largest span dropped", list: "10-4106", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPortRange(tt.list)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPortList(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []int
	}{
		{name: "within bound", list: "1-4,28", want: []int{1, 2, 3, 4, 28}},
		{name: "range past bound dropped", list: "1-3000000,7", want: []int{7}},
		{name: "value past bound dropped", list: "65,3", want: []int{3}},
		{name: "zero dropped", list: "0,0-2", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPortList(tt.list, 64)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandVLANList(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []int
	}{
		{name: "values", list: "14,18,29", want: []int{14, 18, 29}},
		{name: "end clamped", list: "4093-4096", want: []int{4093, 4094}},
		{name: "start clamped", list: "0-1", want: []int{1}},
		{name: "huge range clamped", list: "4090-3000000", want: []int{4090, 4091, 4092, 4093, 4094}},
		{name: "range outside interval", list: "5000-6000,4095", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandVLANList(tt.list)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, ExpandVLANList("2-4094"), 4093)
	assert.Len(t, ExpandVLANList("1-3000000"), 4094)
}

func expected(from int, to int) []int {
	values := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		values = append(values, i)
	}
	return values
}

func TestIPFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{path: "data/macs/192_168_156_110.mac", want: "192.168.156.110", ok: true},
		{path: "192.168.65.239", want: "192.168.65.239", ok: true},
		{path: "/tmp/configs/10.0.0.1.cfg", want: "10.0.0.1", ok: true},
		{path: "switch.cfg", ok: false},
		{path: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := IPFromFilename(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareIP(t *testing.T) {
	assert.Negative(t, CompareIP("10.0.0.2", "10.0.0.10"))
	assert.Positive(t, CompareIP("10.0.1.1", "10.0.0.200"))
	assert.Zero(t, CompareIP("10.0.0.1", "10.0.0.1"))
	assert.Negative(t, CompareIP("a", "b"))
}

func TestUnderscoreIP(t *testing.T) {
	assert.Equal(t, "192_168_1_10", UnderscoreIP("192.168.1.10"))
}
