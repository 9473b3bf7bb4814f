package location

import (
	"fmt"
	"math"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/shared/geo"
	"github.com/bbalwant/smart-tracking-system/internal/track"
)

const (
	defaultAverageSpeedKmh = 30.0

	// Travel-time buffer applied on top of the straight-line estimate,
	// and the minimum estimate served for any package still en route.
	etaBufferFactor = 1.1
	minimumETA      = 5 * time.Minute
)

// computeETA estimates arrival from a straight-line distance at the
// configured average speed. Within arrivedDistanceKm of the recipient the
// estimate is reported as arrived with no remaining time.
func computeETA(lat, lng float64, recipient track.Endpoint, avgSpeedKmh float64, now time.Time) track.ETA {
	distanceKm := geo.HaversineKm(lat, lng, recipient.Latitude, recipient.Longitude)
	if distanceKm < arrivedDistanceKm {
		return track.ETA{
			ETA:          now,
			FormattedETA: "Arrived",
		}
	}

	remaining := time.Duration(float64(time.Hour) * distanceKm / avgSpeedKmh * etaBufferFactor)
	if remaining < minimumETA {
		remaining = minimumETA
	}

	return track.ETA{
		ETA:                  now.Add(remaining),
		FormattedETA:         formatRemaining(remaining),
		TimeRemainingMinutes: int(math.Round(remaining.Minutes())),
	}
}

func formatRemaining(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
