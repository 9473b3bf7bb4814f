package packages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/db"
	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("package not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// NewTrackingID mints the external key viewers and couriers use to name a
// delivery.
func NewTrackingID() string {
	return "PKT-" + strings.ToUpper(uuid.NewString()[:8])
}

func validateParty(p Party, side string) error {
	if p.Endpoint().IsSet() {
		if err := track.ValidateCoordinates(p.Latitude, p.Longitude); err != nil {
			return errors.New(side + " " + err.Error())
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, input Package) (Package, error) {
	if err := validateParty(input.Sender, "sender"); err != nil {
		return Package{}, err
	}
	if err := validateParty(input.Recipient, "recipient"); err != nil {
		return Package{}, err
	}

	input.ID = uuid.NewString()
	if input.TrackingID == "" {
		input.TrackingID = NewTrackingID()
	}
	if input.Status == "" {
		input.Status = track.StatusRegistered
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO packages (
			id, tracking_id,
			sender_name, sender_address, sender_phone, sender_lat, sender_lng,
			recipient_name, recipient_address, recipient_phone, recipient_lat, recipient_lng,
			status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at
	`, input.ID, input.TrackingID,
		input.Sender.Name, input.Sender.Address, input.Sender.Phone, input.Sender.Latitude, input.Sender.Longitude,
		input.Recipient.Name, input.Recipient.Address, input.Recipient.Phone, input.Recipient.Latitude, input.Recipient.Longitude,
		input.Status)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return Package{}, err
	}
	return input, nil
}

const packageColumns = `
	id, tracking_id,
	sender_name, sender_address, sender_phone, sender_lat, sender_lng,
	recipient_name, recipient_address, recipient_phone, recipient_lat, recipient_lng,
	status, created_at, updated_at`

func scanPackage(row pgx.Row) (Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.TrackingID,
		&p.Sender.Name, &p.Sender.Address, &p.Sender.Phone, &p.Sender.Latitude, &p.Sender.Longitude,
		&p.Recipient.Name, &p.Recipient.Address, &p.Recipient.Phone, &p.Recipient.Latitude, &p.Recipient.Longitude,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Service) GetByTrackingID(ctx context.Context, trackingID string) (Package, error) {
	row := s.db.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE tracking_id=$1`, trackingID)
	p, err := scanPackage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	if err != nil {
		return Package{}, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]Package, error) {
	rows, err := s.db.Query(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus applies a lifecycle transition. Delivered is terminal; an
// invalid transition is rejected without touching the row.
func (s *Service) UpdateStatus(ctx context.Context, trackingID, next string) (Package, error) {
	current, err := s.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return Package{}, err
	}
	if !CanTransition(current.Status, next) {
		return Package{}, ErrInvalidTransition
	}

	now := time.Now()
	if _, err := s.db.Exec(ctx, `
		UPDATE packages SET status=$2, updated_at=$3 WHERE tracking_id=$1
	`, trackingID, next, now); err != nil {
		return Package{}, err
	}
	current.Status = next
	current.UpdatedAt = now
	return current, nil
}
