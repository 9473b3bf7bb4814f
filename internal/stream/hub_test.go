package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testSample() track.LocationSample {
	return track.LocationSample{
		ID:         "loc-1",
		TrackingID: "PKT-1",
		Latitude:   28.7,
		Longitude:  77.1,
		Timestamp:  time.Unix(100, 0),
	}
}

func TestHubBroadcastLocation(t *testing.T) {
	hub := NewHub(nil)
	viewer := hub.Register("PKT-1")
	defer hub.Unregister(viewer)

	hub.BroadcastLocation(testSample())

	select {
	case msg := <-viewer.Send:
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Type != "location_update" || env.TrackingID != "PKT-1" {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if env.Data == nil || env.Data.ID != "loc-1" {
			t.Fatalf("missing sample payload")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub(nil)
	other := hub.Register("PKT-2")
	defer hub.Unregister(other)

	hub.BroadcastLocation(testSample())

	select {
	case <-other.Send:
		t.Fatalf("viewer of another package received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("PKT-1")
	if trackingIDFromChannel(ch) != "PKT-1" {
		t.Fatalf("unexpected tracking id from %s", ch)
	}
	if trackingIDFromChannel("bad") != "" {
		t.Fatalf("expected empty tracking id")
	}
}

func TestViewerCount(t *testing.T) {
	hub := NewHub(nil)
	if hub.ViewerCount("PKT-1") != 0 {
		t.Fatalf("expected empty room")
	}
	a := hub.Register("PKT-1")
	b := hub.Register("PKT-1")
	if hub.ViewerCount("PKT-1") != 2 {
		t.Fatalf("expected 2 viewers")
	}
	hub.Unregister(a)
	hub.Unregister(b)
	if hub.ViewerCount("PKT-1") != 0 {
		t.Fatalf("expected room cleaned up")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	viewer := hub.Register("PKT-1")
	hub.Unregister(viewer)
	_, ok := <-viewer.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisBroadcastAndSubscribe(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client)
	viewer := hub.Register("PKT-redis")
	defer hub.Unregister(viewer)

	// give the pattern subscription a moment to establish
	time.Sleep(50 * time.Millisecond)

	sample := testSample()
	sample.TrackingID = "PKT-redis"
	payload, _ := json.Marshal(Envelope{Type: "location_update", TrackingID: sample.TrackingID, Data: &sample})
	if err := client.Publish(context.Background(), redisChannel("PKT-redis"), payload).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-viewer.Send:
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil || env.TrackingID != "PKT-redis" {
			t.Fatalf("unexpected payload %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for bridged message")
	}
}

func TestHubBroadcastRacesRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			viewer := hub.Register("PKT-1")
			hub.Unregister(viewer)
		}
	}()

	sample := testSample()
	for i := 0; i < 500; i++ {
		hub.BroadcastLocation(sample)
	}

	close(stop)
	<-done
	if hub.ViewerCount("PKT-1") != 0 {
		t.Fatalf("expected empty room after churn")
	}
}

func TestHubRedisDeliversExactlyOnce(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client)
	viewer := hub.Register("PKT-once")
	defer hub.Unregister(viewer)

	// give the pattern subscription a moment to establish
	time.Sleep(50 * time.Millisecond)

	sample := testSample()
	sample.TrackingID = "PKT-once"
	hub.BroadcastLocation(sample)

	select {
	case <-viewer.Send:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for bridged message")
	}

	select {
	case msg := <-viewer.Send:
		t.Fatalf("unexpected second delivery: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
