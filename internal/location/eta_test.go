package location

import (
	"strings"
	"testing"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

func TestComputeETAArrived(t *testing.T) {
	now := time.Now()
	recipient := track.Endpoint{Latitude: 28.8000, Longitude: 77.2000}

	eta := computeETA(28.80001, 77.20001, recipient, 30, now)
	if eta.FormattedETA != "Arrived" {
		t.Fatalf("expected Arrived, got %q", eta.FormattedETA)
	}
	if eta.TimeRemainingMinutes != 0 {
		t.Fatalf("expected no remaining time, got %d", eta.TimeRemainingMinutes)
	}
}

func TestComputeETAMinimumFloor(t *testing.T) {
	now := time.Now()
	// About 300 m out: past the arrival radius but under the floor.
	recipient := track.Endpoint{Latitude: 28.8027, Longitude: 77.2000}

	eta := computeETA(28.8000, 77.2000, recipient, 30, now)
	if eta.TimeRemainingMinutes != 5 {
		t.Fatalf("expected 5 minute floor, got %d", eta.TimeRemainingMinutes)
	}
	if got := eta.ETA.Sub(now); got != 5*time.Minute {
		t.Fatalf("expected eta 5 minutes out, got %v", got)
	}
}

func TestComputeETABufferedEstimate(t *testing.T) {
	now := time.Now()
	// Roughly one degree of latitude, about 111 km.
	recipient := track.Endpoint{Latitude: 29.8000, Longitude: 77.2000}

	eta := computeETA(28.8000, 77.2000, recipient, 30, now)
	// 111 km at 30 km/h is 222 minutes, plus the ten percent buffer.
	if eta.TimeRemainingMinutes < 240 || eta.TimeRemainingMinutes > 250 {
		t.Fatalf("unexpected estimate: %d minutes", eta.TimeRemainingMinutes)
	}
	if !strings.HasPrefix(eta.FormattedETA, "4h ") {
		t.Fatalf("unexpected formatting: %q", eta.FormattedETA)
	}
}

func TestFormatRemaining(t *testing.T) {
	if got := formatRemaining(45 * time.Minute); got != "45m" {
		t.Fatalf("got %q", got)
	}
	if got := formatRemaining(125 * time.Minute); got != "2h 5m" {
		t.Fatalf("got %q", got)
	}
}
