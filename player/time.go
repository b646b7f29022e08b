package player

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDurationLabel converts an "MM:SS" or "H:MM:SS" label into whole
// seconds. The "N/A" sentinel and anything else unparseable yield zero.
func ParseDurationLabel(label string) int {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// FormatSeconds renders whole seconds as "MM:SS" for progress display.
// Negative input renders as "00:00".
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	return fmt.Sprintf("%02d:%02d", whole/60, whole%60)
}
