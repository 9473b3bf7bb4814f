package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/redis/go-redis/v9"
)

// Hub fans location events out to every viewer subscribed to a tracking
// id. With a Redis client it also bridges events across instances so a
// viewer connected elsewhere still sees updates published here.
type Hub struct {
	redis   *redis.Client
	viewers map[string]map[*Viewer]struct{}
	mu      sync.RWMutex
}

type Viewer struct {
	TrackingID string
	Send       chan []byte
}

// Envelope is the push-channel wire format.
type Envelope struct {
	Type       string                `json:"type"`
	TrackingID string                `json:"tracking_id"`
	Data       *track.LocationSample `json:"data,omitempty"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		viewers: map[string]map[*Viewer]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(trackingID string) *Viewer {
	viewer := &Viewer{
		TrackingID: trackingID,
		Send:       make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[trackingID] == nil {
		h.viewers[trackingID] = map[*Viewer]struct{}{}
	}
	h.viewers[trackingID][viewer] = struct{}{}
	return viewer
}

func (h *Hub) Unregister(viewer *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.viewers[viewer.TrackingID]; ok {
		delete(room, viewer)
		if len(room) == 0 {
			delete(h.viewers, viewer.TrackingID)
		}
	}
	close(viewer.Send)
}

// ViewerCount reports how many viewers are subscribed to a tracking id on
// this instance.
func (h *Hub) ViewerCount(trackingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[trackingID])
}

// BroadcastLocation fans one sample out to every viewer of the tracking
// id. Without Redis it delivers directly; with Redis it publishes once and
// the pattern subscription delivers to local viewers together with every
// other instance. Slow viewers are skipped, never blocked on.
func (h *Hub) BroadcastLocation(sample track.LocationSample) {
	payload, err := json.Marshal(Envelope{
		Type:       "location_update",
		TrackingID: sample.TrackingID,
		Data:       &sample,
	})
	if err != nil {
		log.Printf("stream: marshal location event: %v", err)
		return
	}

	if h.redis != nil {
		// The pattern subscription receives this instance's own publish,
		// so local viewers are served through the bridge exactly once.
		if err := h.redis.Publish(context.Background(), redisChannel(sample.TrackingID), payload).Err(); err != nil {
			log.Printf("stream: redis publish error: %v", err)
			h.deliverLocal(sample.TrackingID, payload)
		}
		return
	}

	h.deliverLocal(sample.TrackingID, payload)
}

func (h *Hub) deliverLocal(trackingID string, payload []byte) {
	// Sends are non-blocking, so the read lock is held across the loop.
	// Unregister closes Send under the write lock; releasing the lock
	// before sending would race that close.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for viewer := range h.viewers[trackingID] {
		select {
		case viewer.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "courier:*:locations")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		trackingID := trackingIDFromChannel(msg.Channel)
		if trackingID == "" {
			continue
		}
		h.deliverLocal(trackingID, []byte(msg.Payload))
	}
}

func redisChannel(trackingID string) string {
	return "courier:" + trackingID + ":locations"
}

func trackingIDFromChannel(ch string) string {
	// courier:{tracking_id}:locations
	const prefix = "courier:"
	const suffix = ":locations"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
