package packages

import (
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

type Party struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Party) Endpoint() track.Endpoint {
	return track.Endpoint{Latitude: p.Latitude, Longitude: p.Longitude}
}

type Package struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"tracking_id"`
	Sender     Party     `json:"sender"`
	Recipient  Party     `json:"recipient"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// validTransitions encodes the package lifecycle: a registered package may
// go in transit or straight to delivered; delivered is terminal.
var validTransitions = map[string][]string{
	track.StatusRegistered: {track.StatusInTransit, track.StatusDelivered},
	track.StatusInTransit:  {track.StatusDelivered},
	track.StatusDelivered:  {},
}

func CanTransition(current, next string) bool {
	for _, allowed := range validTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}
