package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeStep(t *testing.T) {
	wrap := Range{Min: 0, Max: 9, Wrap: true}
	clamp := Range{Min: 0, Max: 5}

	tests := []struct {
		name    string
		r       Range
		cur     int
		delta   int
		present []int
		want    int
		ok      bool
	}{
		{"next", wrap, 3, 1, nil, 4, true},
		{"prev", wrap, 3, -1, nil, 2, true},
		{"wrap high", wrap, 9, 1, nil, 0, true},
		{"wrap low", wrap, 0, -1, nil, 9, true},
		{"clamp high", clamp, 5, 1, nil, 5, false},
		{"clamp low", clamp, 0, -1, nil, 0, false},
		{"clamp inside", clamp, 4, 1, nil, 5, true},
		{"zero delta", wrap, 4, 0, nil, 4, false},
		{"single index", Range{Min: 2, Max: 2, Wrap: true}, 2, 1, nil, 2, false},
		{"present next", wrap, 0, 1, []int{0, 3, 8}, 3, true},
		{"present prev", wrap, 3, -1, []int{0, 3, 8}, 0, true},
		{"present wrap", wrap, 8, 1, []int{8, 3, 0}, 0, true},
		{"present wrap low", wrap, 0, -1, []int{0, 3, 8}, 8, true},
		{"present clamp", clamp, 3, 1, []int{0, 3, 8}, 3, false},
		{"present from absent", wrap, 5, 1, []int{0, 3, 8}, 8, true},
		{"present only self", wrap, 3, 1, []int{3}, 3, false},
		{"present out of range", clamp, 1, 1, []int{7, 9}, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.r.Step(tt.cur, tt.delta, tt.present)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
