package route

import (
	"math"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

// Path kinds, in priority order. Exactly one is rendered at a time.
const (
	PathRoad     = "road"     // provider-calculated road geometry
	PathTrace    = "trace"    // raw reconstructed path from samples
	PathBaseline = "baseline" // straight sender->recipient segment
	PathNone     = "none"     // nothing drawable yet
)

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Path struct {
	Kind   string  `json:"kind"`
	Points []Point `json:"points"`
}

// BuildPath derives the drawable path from the fixed endpoints, the merged
// history, and an optional road geometry. Road geometry wins when present;
// the reconstructed trace is next; a straight baseline between the two
// endpoints is the last resort. With fewer than two usable points nothing
// is drawn.
func BuildPath(sender, recipient track.Endpoint, store *Store, road []Point) Path {
	if len(road) >= 2 {
		return Path{Kind: PathRoad, Points: road}
	}

	trace := buildTrace(sender, store)
	if len(trace) >= 2 {
		return Path{Kind: PathTrace, Points: trace}
	}

	if sender.IsSet() && recipient.IsSet() {
		return Path{Kind: PathBaseline, Points: []Point{
			{Latitude: sender.Latitude, Longitude: sender.Longitude},
			{Latitude: recipient.Latitude, Longitude: recipient.Longitude},
		}}
	}

	return Path{Kind: PathNone}
}

// buildTrace walks the history in timestamp order, starting from the sender
// endpoint when it is set, skipping zero/zero samples and any step shorter
// than the duplicate threshold so the rendered line has no redundant
// segments.
func buildTrace(sender track.Endpoint, store *Store) []Point {
	threshold := store.ThresholdDeg()
	var points []Point

	if sender.IsSet() {
		points = append(points, Point{Latitude: sender.Latitude, Longitude: sender.Longitude})
	}

	appendPoint := func(lat, lng float64) {
		if lat == 0 && lng == 0 {
			return
		}
		if len(points) > 0 {
			last := points[len(points)-1]
			if math.Abs(last.Latitude-lat) < threshold && math.Abs(last.Longitude-lng) < threshold {
				return
			}
		}
		points = append(points, Point{Latitude: lat, Longitude: lng})
	}

	for _, sample := range store.History() {
		appendPoint(sample.Latitude, sample.Longitude)
	}
	if current, ok := store.Current(); ok {
		appendPoint(current.Latitude, current.Longitude)
	}
	return points
}

// RoadAnchor is the origin the road-routing provider should route from:
// the current position when one exists, otherwise the sender endpoint.
func RoadAnchor(sender track.Endpoint, store *Store) (Point, bool) {
	if current, ok := store.Current(); ok {
		return Point{Latitude: current.Latitude, Longitude: current.Longitude}, true
	}
	if sender.IsSet() {
		return Point{Latitude: sender.Latitude, Longitude: sender.Longitude}, true
	}
	return Point{}, false
}
