package entitlement

import (
	"strings"
	"time"
)

// MonthsInCycle maps a billing cycle name to its length in months. Unknown cycles bill monthly.
func MonthsInCycle(cycle string) int {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case "quarterly":
		return 3
	case "semi_annual", "semi-annual", "semiannual":
		return 6
	case "annual", "yearly":
		return 12
	default:
		return 1
	}
}

// CalculateEndDate returns the end of one billing period starting at start.
func CalculateEndDate(start time.Time, cycle string) time.Time {
	return start.AddDate(0, MonthsInCycle(cycle), 0)
}
