package track

import (
	"errors"
	"math"
	"time"
)

// DefaultDuplicateThresholdDeg is the coordinate delta under which two
// samples with equal timestamps are treated as redelivery of the same
// physical event (~11 m). Tunable via config, not a hard invariant.
const DefaultDuplicateThresholdDeg = 0.0001

var (
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// Package lifecycle statuses. Delivered is terminal.
const (
	StatusRegistered = "registered"
	StatusInTransit  = "in_transit"
	StatusDelivered  = "delivered"
)

// LocationSample is one position report for a package. ID may be empty for
// locally generated samples that the backend has not confirmed yet.
type LocationSample struct {
	ID         string    `json:"id,omitempty"`
	TrackingID string    `json:"tracking_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
}

// SameEvent reports whether two samples describe the same physical event:
// matching ids, or equal timestamps with both coordinates within
// thresholdDeg.
func (s LocationSample) SameEvent(other LocationSample, thresholdDeg float64) bool {
	if s.ID != "" && s.ID == other.ID {
		return true
	}
	return s.Timestamp.Equal(other.Timestamp) &&
		math.Abs(s.Latitude-other.Latitude) < thresholdDeg &&
		math.Abs(s.Longitude-other.Longitude) < thresholdDeg
}

// NearbyDeg reports whether the sample's coordinates are both within
// thresholdDeg of the given point, regardless of timestamps.
func (s LocationSample) NearbyDeg(lat, lng, thresholdDeg float64) bool {
	return math.Abs(s.Latitude-lat) < thresholdDeg &&
		math.Abs(s.Longitude-lng) < thresholdDeg
}

// Endpoint is a fixed sender or recipient coordinate. Zero/zero means the
// coordinate was never supplied, not a position at the origin.
type Endpoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (e Endpoint) IsSet() bool {
	return e.Latitude != 0 || e.Longitude != 0
}

// ETA is the estimate served by the backend for an undelivered package.
type ETA struct {
	ETA                  time.Time `json:"eta"`
	FormattedETA         string    `json:"formatted_eta"`
	TimeRemainingMinutes int       `json:"time_remaining_minutes"`
}

// ValidateCoordinates checks latitude and longitude ranges and returns an
// error naming the first offending field.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if lng < -180 || lng > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}
