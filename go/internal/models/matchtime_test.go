package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeMatchTime(t *testing.T) {
	tests := []struct {
		name      string
		period    int
		remaining int
		want      int
	}{
		{"first half kick off", 1, 1200, 2400},
		{"first half end", 1, 0, 1200},
		{"second half kick off", 2, 1200, 0},
		{"second half end", 2, 0, 1200},
		{"second half midway", 2, 600, 600},
		{"negative remaining clamps", 2, -5, 1200},
		{"overflow clamps", 1, 5000, 2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeMatchTime(tt.period, tt.remaining))
		})
	}
}

func TestEncodeMatchTimeFor_CustomLength(t *testing.T) {
	assert.Equal(t, 1200, EncodeMatchTimeFor(600, 1, 600))
	assert.Equal(t, 600, EncodeMatchTimeFor(600, 2, 0))
}

func TestElapsedSeconds(t *testing.T) {
	assert.Equal(t, 0, ElapsedSeconds(PeriodLength, 1, 1200))
	assert.Equal(t, 1200, ElapsedSeconds(PeriodLength, 1, 0))
	assert.Equal(t, 1500, ElapsedSeconds(PeriodLength, 2, 900))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "20:00", FormatClock(1200))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "00:00", FormatClock(-3))
}
