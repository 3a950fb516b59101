package common

import (
	"fmt"
	"strings"
)

// FormatNumber formats an amount with thousand separators
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	str := fmt.Sprintf("%d", n)
	l := len(str)
	if l <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (l-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatProgressBar renders current/total as a fixed-width bar
func FormatProgressBar(current, total int64, width int) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if total > 0 && current > 0 {
		filled = int(current * int64(width) / total)
	}
	if filled > width {
		filled = width
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatRankPrefix returns a medal for the podium and "**n.**" for the rest
func FormatRankPrefix(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("**%d.**", rank)
	}
}
