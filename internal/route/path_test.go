package route

import (
	"testing"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

var (
	sender    = track.Endpoint{Latitude: 28.70, Longitude: 77.10}
	recipient = track.Endpoint{Latitude: 28.80, Longitude: 77.20}
)

func TestBuildPathPrefersRoadGeometry(t *testing.T) {
	store := NewStore(0)
	store.Merge(sample("a", 28.71, 77.11, 100))

	road := []Point{{28.71, 77.11}, {28.75, 77.15}, {28.80, 77.20}}
	path := BuildPath(sender, recipient, store, road)
	if path.Kind != PathRoad {
		t.Fatalf("expected road path, got %s", path.Kind)
	}
	if len(path.Points) != 3 {
		t.Fatalf("road geometry must be passed through unchanged")
	}
}

func TestBuildPathTraceFromSamples(t *testing.T) {
	store := NewStore(0)
	store.Merge(sample("a", 28.71, 77.11, 100))
	store.Merge(sample("b", 28.72, 77.12, 200))

	path := BuildPath(sender, recipient, store, nil)
	if path.Kind != PathTrace {
		t.Fatalf("expected trace path, got %s", path.Kind)
	}
	// sender + two samples
	if len(path.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(path.Points))
	}
	if path.Points[0].Latitude != sender.Latitude {
		t.Fatalf("trace must start at the sender endpoint")
	}
}

func TestBuildPathSkipsSubThresholdSteps(t *testing.T) {
	store := NewStore(0)
	store.Merge(sample("a", 28.71, 77.11, 100))
	// distinct event (different timestamp) but visually on top of the last one
	store.Merge(sample("b", 28.710005, 77.110005, 200))
	store.Merge(sample("c", 28.72, 77.12, 300))

	path := BuildPath(sender, recipient, store, nil)
	if len(path.Points) != 3 {
		t.Fatalf("expected sub-threshold step collapsed, got %d points", len(path.Points))
	}
}

func TestBuildPathSkipsZeroSamples(t *testing.T) {
	store := NewStore(0)
	store.Merge(sample("a", 0, 0, 100))
	store.Merge(sample("b", 28.72, 77.12, 200))

	path := BuildPath(sender, recipient, store, nil)
	for _, p := range path.Points {
		if p.Latitude == 0 && p.Longitude == 0 {
			t.Fatalf("zero/zero sample must not be drawn")
		}
	}
}

func TestBuildPathBaselineFallback(t *testing.T) {
	store := NewStore(0)

	path := BuildPath(sender, recipient, store, nil)
	if path.Kind != PathBaseline {
		t.Fatalf("expected baseline, got %s", path.Kind)
	}
	if len(path.Points) != 2 {
		t.Fatalf("baseline must be a single segment")
	}
}

func TestBuildPathNoRecipientNoLine(t *testing.T) {
	// only the sender is known: one usable point, no recipient to fall back
	// to, so nothing is drawn and nothing panics.
	store := NewStore(0)

	path := BuildPath(sender, track.Endpoint{}, store, nil)
	if path.Kind != PathNone {
		t.Fatalf("expected no path, got %s", path.Kind)
	}
	if len(path.Points) != 0 {
		t.Fatalf("expected no points, got %d", len(path.Points))
	}
}

func TestBuildPathUnsetSenderIgnored(t *testing.T) {
	store := NewStore(0)
	store.Merge(sample("a", 28.71, 77.11, 100))
	store.Merge(sample("b", 28.72, 77.12, 200))

	path := BuildPath(track.Endpoint{}, recipient, store, nil)
	if path.Kind != PathTrace {
		t.Fatalf("expected trace, got %s", path.Kind)
	}
	if path.Points[0].Latitude != 28.71 {
		t.Fatalf("unset sender must not contribute a point")
	}
}

func TestRoadAnchor(t *testing.T) {
	store := NewStore(0)

	anchor, ok := RoadAnchor(sender, store)
	if !ok || anchor.Latitude != sender.Latitude {
		t.Fatalf("expected sender anchor before any sample")
	}

	store.Merge(sample("a", 28.75, 77.15, 100))
	anchor, ok = RoadAnchor(sender, store)
	if !ok || anchor.Latitude != 28.75 {
		t.Fatalf("expected current-position anchor, got %+v", anchor)
	}

	_, ok = RoadAnchor(track.Endpoint{}, NewStore(0))
	if ok {
		t.Fatalf("expected no anchor without sender or samples")
	}
}
