package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		n        int64
		expected string
	}{
		{"zero", 0, "0"},
		{"less than 1k", 999, "999"},
		{"exactly 1k", 1000, "1,000"},
		{"millions", 1234567, "1,234,567"},
		{"negative", -4500, "-4,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNumber(tt.n))
		})
	}
}

func TestFormatProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", FormatProgressBar(0, 100, 10))
	assert.Equal(t, "█████░░░░░", FormatProgressBar(50, 100, 10))
	assert.Equal(t, "█████████░", FormatProgressBar(99, 100, 10))
	assert.Equal(t, "██████████", FormatProgressBar(500, 100, 10))
	assert.Equal(t, "░░░░", FormatProgressBar(10, 0, 4))
	assert.Equal(t, "", FormatProgressBar(10, 100, 0))
}

func TestFormatRankPrefix(t *testing.T) {
	assert.Equal(t, "🥇", FormatRankPrefix(1))
	assert.Equal(t, "🥉", FormatRankPrefix(3))
	assert.Equal(t, "**4.**", FormatRankPrefix(4))
}
