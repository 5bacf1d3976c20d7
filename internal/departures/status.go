package departures

import (
	"fmt"
	"math"
	"time"
)

// Status vocabulary for departures. A reported non-zero delay wins over
// proximity; an unreported delay falls through to how close the train is.
const (
	StatusOnTime      = "On Time"
	StatusApproaching = "Approaching"
	StatusDue         = "Due"
	StatusScheduled   = "Scheduled"
)

// delayMinutes converts a delay in seconds to whole minutes, rounding
// half away from zero.
func delayMinutes(delaySeconds int32) int {
	return int(math.Round(float64(delaySeconds) / 60.0))
}

// deriveStatus computes the display status from a delay (nil when the feed
// reported none) and the time until the observation.
func deriveStatus(delayMin *int, untilDeparture time.Duration) string {
	if delayMin != nil {
		switch {
		case *delayMin > 1:
			return fmt.Sprintf("Delayed %d min", *delayMin)
		case *delayMin < -1:
			return fmt.Sprintf("Early %d min", -*delayMin)
		default:
			return StatusOnTime
		}
	}

	switch {
	case untilDeparture >= 30*time.Second && untilDeparture <= 120*time.Second:
		return StatusApproaching
	case untilDeparture >= -30*time.Second && untilDeparture <= 30*time.Second:
		return StatusDue
	default:
		return StatusScheduled
	}
}
