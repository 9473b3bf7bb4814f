package packages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/pashagolub/pgxmock/v3"
)

var packageRowColumns = []string{
	"id", "tracking_id",
	"sender_name", "sender_address", "sender_phone", "sender_lat", "sender_lng",
	"recipient_name", "recipient_address", "recipient_phone", "recipient_lat", "recipient_lng",
	"status", "created_at", "updated_at",
}

func packageRow(p Package) *pgxmock.Rows {
	return pgxmock.NewRows(packageRowColumns).AddRow(
		p.ID, p.TrackingID,
		p.Sender.Name, p.Sender.Address, p.Sender.Phone, p.Sender.Latitude, p.Sender.Longitude,
		p.Recipient.Name, p.Recipient.Address, p.Recipient.Phone, p.Recipient.Latitude, p.Recipient.Longitude,
		p.Status, p.CreatedAt, p.UpdatedAt,
	)
}

func testPackage() Package {
	return Package{
		ID:         "id-1",
		TrackingID: "PKT-ABCD1234",
		Sender:     Party{Name: "A", Latitude: 28.70, Longitude: 77.10},
		Recipient:  Party{Name: "B", Latitude: 28.80, Longitude: 77.20},
		Status:     track.StatusRegistered,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestCreateGetList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc := NewService(mock)

	mock.ExpectQuery(`INSERT INTO packages`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(),
			"A", "", "", 28.70, 77.10,
			"B", "", "", 28.80, 77.20,
			track.StatusRegistered).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	pkg, err := svc.Create(context.Background(), Package{
		Sender:    Party{Name: "A", Latitude: 28.70, Longitude: 77.10},
		Recipient: Party{Name: "B", Latitude: 28.80, Longitude: 77.20},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pkg.TrackingID == "" || pkg.Status != track.StatusRegistered {
		t.Fatalf("unexpected package %+v", pkg)
	}

	stored := testPackage()
	mock.ExpectQuery(`SELECT(.|\n)*FROM packages WHERE tracking_id`).
		WithArgs(stored.TrackingID).
		WillReturnRows(packageRow(stored))

	loaded, err := svc.GetByTrackingID(context.Background(), stored.TrackingID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.TrackingID != stored.TrackingID || loaded.Sender.Latitude != 28.70 {
		t.Fatalf("unexpected load %+v", loaded)
	}

	mock.ExpectQuery(`SELECT(.|\n)*FROM packages ORDER BY created_at`).
		WillReturnRows(packageRow(stored))

	list, err := svc.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRejectsBadEndpoints(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Create(context.Background(), Package{
		Sender:    Party{Name: "A", Latitude: 95, Longitude: 10},
		Recipient: Party{Name: "B"},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM packages WHERE tracking_id`).
		WithArgs("PKT-MISSING").
		WillReturnRows(pgxmock.NewRows(packageRowColumns))

	svc := NewService(mock)
	if _, err := svc.GetByTrackingID(context.Background(), "PKT-MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc := NewService(mock)
	stored := testPackage()

	mock.ExpectQuery(`SELECT(.|\n)*FROM packages WHERE tracking_id`).
		WithArgs(stored.TrackingID).
		WillReturnRows(packageRow(stored))
	mock.ExpectExec(`UPDATE packages SET status`).
		WithArgs(stored.TrackingID, track.StatusInTransit, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := svc.UpdateStatus(context.Background(), stored.TrackingID, track.StatusInTransit)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != track.StatusInTransit {
		t.Fatalf("unexpected status %s", updated.Status)
	}

	delivered := stored
	delivered.Status = track.StatusDelivered
	mock.ExpectQuery(`SELECT(.|\n)*FROM packages WHERE tracking_id`).
		WithArgs(stored.TrackingID).
		WillReturnRows(packageRow(delivered))

	if _, err := svc.UpdateStatus(context.Background(), stored.TrackingID, track.StatusInTransit); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(track.StatusRegistered, track.StatusDelivered) {
		t.Fatalf("registered may go straight to delivered")
	}
	if CanTransition(track.StatusDelivered, track.StatusInTransit) {
		t.Fatalf("delivered is terminal")
	}
	if CanTransition("unknown", track.StatusInTransit) {
		t.Fatalf("unknown status has no transitions")
	}
}
