package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{label: "12:34", want: 754},
		{label: "0:05", want: 5},
		{label: "1:02:03", want: 3723},
		{label: " 3:00 ", want: 180},
		{label: "N/A", want: 0},
		{label: "", want: 0},
		{label: "12", want: 0},
		{label: "1:2:3:4", want: 0},
		{label: "-1:30", want: 0},
		{label: "ab:cd", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDurationLabel(tt.label))
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "00:00", FormatSeconds(0))
	assert.Equal(t, "00:05", FormatSeconds(5.4))
	assert.Equal(t, "12:34", FormatSeconds(754))
	assert.Equal(t, "90:00", FormatSeconds(5400))
	assert.Equal(t, "00:00", FormatSeconds(-7))
}
