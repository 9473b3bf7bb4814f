package location

import (
	"context"
	"errors"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/db"
	"github.com/bbalwant/smart-tracking-system/internal/packages"
	"github.com/bbalwant/smart-tracking-system/internal/shared/geo"
	"github.com/bbalwant/smart-tracking-system/internal/stream"
	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/google/uuid"
)

var ErrETANotAvailable = errors.New("eta not available")

// Distance triggers for automatic status transitions, in kilometers.
// Moving more than inTransitDistanceKm away from the sender marks the
// package in transit; coming within arrivedDistanceKm of the recipient
// marks it delivered.
const (
	inTransitDistanceKm = 0.5
	arrivedDistanceKm   = 0.1
)

type Service struct {
	db          db.Querier
	packages    *packages.Service
	hub         *stream.Hub
	avgSpeedKmh float64
}

func NewService(querier db.Querier, pkgs *packages.Service, hub *stream.Hub, avgSpeedKmh float64) *Service {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = defaultAverageSpeedKmh
	}
	return &Service{db: querier, packages: pkgs, hub: hub, avgSpeedKmh: avgSpeedKmh}
}

// Update records a courier position for a package, applies any automatic
// status transition the new position implies, and fans the sample out to
// live viewers.
func (s *Service) Update(ctx context.Context, trackingID string, lat, lng float64) (track.LocationSample, error) {
	if err := track.ValidateCoordinates(lat, lng); err != nil {
		return track.LocationSample{}, err
	}

	pkg, err := s.packages.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return track.LocationSample{}, err
	}

	sample := track.LocationSample{
		ID:         uuid.NewString(),
		TrackingID: trackingID,
		Latitude:   lat,
		Longitude:  lng,
		Timestamp:  time.Now().UTC(),
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO locations (id, tracking_id, latitude, longitude, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
	`, sample.ID, sample.TrackingID, sample.Latitude, sample.Longitude, sample.Timestamp); err != nil {
		return track.LocationSample{}, err
	}

	if next, ok := s.autoTransition(pkg, lat, lng); ok {
		if _, err := s.packages.UpdateStatus(ctx, trackingID, next); err != nil {
			return track.LocationSample{}, err
		}
	}

	if s.hub != nil {
		s.hub.BroadcastLocation(sample)
	}
	return sample, nil
}

// autoTransition returns the status the new position moves the package to,
// if any. Delivered wins over in transit when both would apply.
func (s *Service) autoTransition(pkg packages.Package, lat, lng float64) (string, bool) {
	if pkg.Status == track.StatusDelivered {
		return "", false
	}
	recipient := pkg.Recipient.Endpoint()
	if recipient.IsSet() &&
		geo.HaversineKm(lat, lng, recipient.Latitude, recipient.Longitude) <= arrivedDistanceKm {
		return track.StatusDelivered, true
	}
	sender := pkg.Sender.Endpoint()
	if pkg.Status == track.StatusRegistered && sender.IsSet() &&
		geo.HaversineKm(lat, lng, sender.Latitude, sender.Longitude) > inTransitDistanceKm {
		return track.StatusInTransit, true
	}
	return "", false
}

// History returns every recorded sample for a package in chronological
// order. The package must exist; an empty history is not an error.
func (s *Service) History(ctx context.Context, trackingID string) ([]track.LocationSample, error) {
	if _, err := s.packages.GetByTrackingID(ctx, trackingID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, tracking_id, latitude, longitude, recorded_at
		FROM locations
		WHERE tracking_id=$1
		ORDER BY recorded_at ASC
	`, trackingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []track.LocationSample
	for rows.Next() {
		var sample track.LocationSample
		if err := rows.Scan(&sample.ID, &sample.TrackingID,
			&sample.Latitude, &sample.Longitude, &sample.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// ETA estimates arrival from the latest recorded position. Delivered
// packages and packages with no recorded positions have no estimate.
func (s *Service) ETA(ctx context.Context, trackingID string) (track.ETA, error) {
	pkg, err := s.packages.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return track.ETA{}, err
	}
	if pkg.Status == track.StatusDelivered {
		return track.ETA{}, ErrETANotAvailable
	}
	recipient := pkg.Recipient.Endpoint()
	if !recipient.IsSet() {
		return track.ETA{}, ErrETANotAvailable
	}

	var current track.LocationSample
	err = s.db.QueryRow(ctx, `
		SELECT latitude, longitude
		FROM locations
		WHERE tracking_id=$1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, trackingID).Scan(&current.Latitude, &current.Longitude)
	if err != nil {
		return track.ETA{}, ErrETANotAvailable
	}

	return computeETA(current.Latitude, current.Longitude, recipient, s.avgSpeedKmh, time.Now()), nil
}
