package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrETANotAvailable = errors.New("eta not available yet")
	ErrRejected        = errors.New("update rejected")
)

// Party is one side of a delivery: contact details plus the fixed endpoint
// coordinate attached to the package.
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

type historyResponse struct {
	TrackingID string                 `json:"tracking_id"`
	Locations  []track.LocationSample `json:"locations"`
}

type listResponse struct {
	Packages []Package `json:"packages"`
	Total    int       `json:"total"`
}

// Client talks to the tracking backend's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: backend status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) CreatePackage(ctx context.Context, sender, recipient Party) (Package, error) {
	var pkg Package
	payload := map[string]Party{"sender": sender, "recipient": recipient}
	if err := c.do(ctx, http.MethodPost, "/packages", payload, &pkg); err != nil {
		return Package{}, err
	}
	return pkg, nil
}

func (c *Client) ListPackages(ctx context.Context) ([]Package, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/packages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Packages, nil
}

func (c *Client) GetPackageByTrackingID(ctx context.Context, trackingID string) (Package, error) {
	var pkg Package
	if err := c.do(ctx, http.MethodGet, "/packages/"+trackingID, nil, &pkg); err != nil {
		return Package{}, err
	}
	return pkg, nil
}

// GetRouteHistory fetches the stored samples for a package in timestamp
// order.
func (c *Client) GetRouteHistory(ctx context.Context, trackingID string) ([]track.LocationSample, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/tracking/"+trackingID+"/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// GetETA fetches the backend's current estimate. Absence of an estimate is
// a normal state, reported as ErrETANotAvailable.
func (c *Client) GetETA(ctx context.Context, trackingID string) (track.ETA, error) {
	var eta track.ETA
	if err := c.do(ctx, http.MethodGet, "/tracking/"+trackingID+"/eta", nil, &eta); err != nil {
		if errors.Is(err, ErrNotFound) {
			return track.ETA{}, ErrETANotAvailable
		}
		return track.ETA{}, err
	}
	return eta, nil
}

// UpdateLocation emits one position sample for a package. Satisfies the
// publisher's Emitter interface.
func (c *Client) UpdateLocation(ctx context.Context, trackingID string, lat, lng float64) error {
	payload := map[string]float64{"latitude": lat, "longitude": lng}
	return c.do(ctx, http.MethodPost, "/tracking/"+trackingID+"/location", payload, nil)
}
