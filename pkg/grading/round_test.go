package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	semester1, semester2 := 3.43, 3.00
	points, credits := 24.0, 7.0

	cases := []struct {
		in   float64
		want float64
	}{
		{points / credits, 3.43},
		{(semester1 + semester2) / 2, 3.22},
		{3.215, 3.22},
		{1.005, 1.01},
		{2.5, 2.5},
		{0, 0},
		{3.333333333, 3.33},
		{-1.005, -1.01},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Round2(tc.in), "input %v", tc.in)
	}
}
